package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/dto"
	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/util"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me GET /users/me/ 回傳目前 token 對應的本地用戶
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := util.GetUserFromContext(r.Context())
	response.SuccessJSON(w, http.StatusOK, dto.NewUserResponse(user))
}
