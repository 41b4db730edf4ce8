package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrTxConflict 序列化失敗, deadlock 或等鎖逾時, 可重試
	ErrTxConflict = errors.New("transaction conflict")
	// ErrStorageUnavailable 無法連線到資料庫
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// postgres SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgAdminShutdown        = "57P01"
	pgCrashShutdown        = "57P02"
	pgCannotConnectNow     = "57P03"
)

// ClassifyError 將 driver 錯誤轉成 ErrTxConflict / ErrStorageUnavailable
// 無法分類的錯誤原樣回傳
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTxConflict) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	// context 錯誤交給呼叫端判斷, DeadlineExceeded 也實作了 net.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected, pgErr.Code == pgLockNotAvailable:
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == pgAdminShutdown, pgErr.Code == pgCrashShutdown, pgErr.Code == pgCannotConnectNow:
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// sqlite 鎖定
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", ErrTxConflict, err)
	}
	return err
}
