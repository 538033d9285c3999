package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/models"
	"github.com/mmdatafocus/invoice_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceLifecycleAgainstMySQL(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "invoice_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	info, err := models.Signup(ctx, &models.NewSignup{
		FirstName:      "Su",
		LastName:       "Su",
		Email:          "Owner@Test.local",
		Password:       "secret123",
		CompanyName:    "Test Co",
		CurrencySymbol: "Ks",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@test.local", info.User.Email)

	_, err = models.Login(ctx, "owner@test.local", "wrong-pass1", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrorUnauthorized))

	ctx = utils.SetCompanyIdInContext(ctx, info.Company.CompanyID)
	ctx = utils.SetUserIdInContext(ctx, info.User.UserID)
	ctx = utils.SetUserNameInContext(ctx, "Su Su")

	itemRes, err := models.CreateItem(ctx, &invoicing.Item{
		ItemName:    "Widget",
		SalesRate:   decimal.NewFromInt(100),
		DiscountPct: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	lookup, err := models.GetItemLookupList(ctx)
	require.NoError(t, err)
	require.Len(t, lookup, 1)

	_, err = models.CreateItem(ctx, &invoicing.Item{ItemName: "Gadget", SalesRate: decimal.NewFromInt(5)})
	require.NoError(t, err)
	lookup, err = models.GetItemLookupList(ctx)
	require.NoError(t, err)
	assert.Len(t, lookup, 2, "writes must drop the cached lookup list")

	draft := invoicing.Invoice{
		InvoiceNo:     "1",
		InvoiceDate:   "2026-10-16",
		CustomerName:  "Acme",
		TaxPercentage: decimal.NewFromInt(5),
		Lines: []invoicing.Line{
			{ItemID: itemRes.PrimaryKeyID, Quantity: 2, Rate: decimal.NewFromInt(100), DiscountPct: decimal.NewFromInt(10)},
		},
	}
	created, err := models.CreateInvoice(ctx, &draft)
	require.NoError(t, err)

	stored, err := models.GetInvoice(ctx, created.PrimaryKeyID)
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedOn, stored.UpdatedOn)
	assert.True(t, decimal.NewFromInt(180).Equal(stored.SubTotal))
	assert.True(t, decimal.NewFromInt(189).Equal(stored.InvoiceAmount))

	// Two editors start from the same token; the second save must lose.
	first := *stored
	first.CustomerName = "Acme Ltd"
	second := *stored
	second.CustomerName = "Acme Limited"

	_, err = models.UpdateInvoice(ctx, &first)
	require.NoError(t, err)
	_, err = models.UpdateInvoice(ctx, &second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrorConflict))

	again, err := models.GetInvoice(ctx, created.PrimaryKeyID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", again.CustomerName)

	dup := draft
	dup.InvoiceID = 0
	_, err = models.CreateInvoice(ctx, &dup)
	require.Error(t, err)
	assert.Equal(t, "Invoice number 1 already exists", err.Error())

	_, err = models.DeleteItem(ctx, itemRes.PrimaryKeyID)
	assert.Error(t, err, "invoiced items cannot be deleted")

	other := utils.SetCompanyIdInContext(context.Background(), info.Company.CompanyID+1000)
	_, err = models.GetInvoice(other, created.PrimaryKeyID)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))

	_, err = models.DeleteInvoice(ctx, created.PrimaryKeyID)
	require.NoError(t, err)
	list, err := models.GetInvoices(ctx, models.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoice-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoice-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=invoice_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
