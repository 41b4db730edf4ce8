package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("AUTH_PROVIDER_URL", "https://abc.supabase.co/")
	t.Setenv("ADMIN_SUBJECTS", "admin-1, admin-2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ORDER_TX_TIMEOUT", "2s")

	cf, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cf.DbDriver)
	require.Equal(t, "https://abc.supabase.co/auth/v1/.well-known/jwks.json", cf.AuthJWKSURL)
	require.Equal(t, "https://abc.supabase.co/auth/v1", cf.AuthIssuer)
	require.Equal(t, []string{"admin-1", "admin-2"}, cf.AdminSubjects)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cf.KafkaBrokers)
	require.Equal(t, 2*time.Second, cf.OrderTxTimeout)
	require.True(t, cf.AllowAnonymousOrders)
	require.True(t, cf.IsAdminSubject("admin-2"))
	require.False(t, cf.IsAdminSubject("someone"))
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DB_DRIVER=sqlite\nSQLITE_PATH=file.db\nAUTH_JWT_SECRET=secret\nALLOW_ANONYMOUS_ORDERS=false\nSERVER_PORT=9090\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cf, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cf.ServerPort)
	require.Equal(t, "secret", cf.AuthJWTSecret)
	require.Empty(t, cf.AuthJWKSURL)
	require.False(t, cf.AllowAnonymousOrders)
}

func TestLoadConfigRequiresAuthSource(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	_, err := LoadConfig("")
	require.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestLoadCatalogSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `products:
  - name: Keyboard
    description: mechanical
    price: "49.90"
    stock_quantity: 10
  - name: Mouse
    price: "19.99"
    stock_quantity: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadCatalogSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Products, 2)
	price, err := seed.Products[0].PriceDecimal()
	require.NoError(t, err)
	require.Equal(t, "49.9", price.String())
}

func TestLoadCatalogSeedInvalidPrice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products:\n  - name: X\n    price: abc\n"), 0o600))

	_, err := LoadCatalogSeed(path)
	require.Error(t, err)
}
