//go:build integration

package service

// Runs the sale engine against real Postgres via testcontainers.
// Run with: go test -tags integration ./internal/service/... -v

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"medpos/internal/apierror"
	"medpos/internal/config"
	"medpos/internal/dto"
	"medpos/internal/infra"
	"medpos/internal/model"
	"medpos/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

type pgEnv struct {
	db        *gorm.DB
	svc       SaleService
	actorID   uuid.UUID
	patientID uuid.UUID
	productID uuid.UUID
	stockID   uuid.UUID
	deviceID  uuid.UUID
}

func setupPostgres(t *testing.T, stock int) *pgEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("medpos_test"),
		tcPostgres.WithUsername("medpos"),
		tcPostgres.WithPassword("medpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(&config.Config{DatabaseURL: dsn, DBMaxOpenConns: 20, DBMaxIdleConns: 5})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	env := &pgEnv{db: db, actorID: uuid.New(), patientID: uuid.New(), productID: uuid.New(), stockID: uuid.New(), deviceID: uuid.New()}
	location := model.StockLocation{ID: uuid.New(), Name: "Dépôt Tunis"}
	require.NoError(t, db.Create(&model.User{ID: env.actorID, Username: "caissier", FirstName: "Sami", LastName: "Trabelsi", Role: model.RoleEmployee, Active: true}).Error)
	require.NoError(t, db.Create(&model.Patient{ID: env.patientID, FirstName: "Amal", LastName: "Ben Salah"}).Error)
	require.NoError(t, db.Create(&model.Product{ID: env.productID, Name: "Masque nasal"}).Error)
	require.NoError(t, db.Create(&location).Error)
	require.NoError(t, db.Create(&model.Stock{ID: env.stockID, ProductID: env.productID, LocationID: location.ID, Quantity: stock}).Error)
	require.NoError(t, db.Create(&model.MedicalDevice{ID: env.deviceID, Name: "CPAP AirSense 10", Type: "CPAP", Status: model.DeviceStatusActive}).Error)

	uow := repository.NewUnitOfWork(db)
	sales := repository.NewSaleRepository(db)
	clock := func() time.Time { return fixedNow }
	env.svc = NewSaleService(
		uow,
		sales,
		repository.NewUserRepository(db),
		NewInvoiceNumberGenerator(sales, uow, time.UTC),
		NewPaymentAllocator(repository.NewPaymentRepository(db)),
		NewCNAMDossierService(uow, repository.NewCNAMDossierRepository(db), clock),
		NewInventoryService(repository.NewStockRepository(db), repository.NewMedicalDeviceRepository(db)),
		NewPatientHistoryRecorder(repository.NewPatientRepository(db)),
		nil,
		clock,
	)
	return env
}

func (e *pgEnv) productSale(qty int, unit string) dto.CreateSaleRequest {
	total := dec(unit).Mul(*dec(fmt.Sprint(qty)))
	return dto.CreateSaleRequest{
		PatientID: &e.patientID,
		Items: []dto.SaleItemRequest{{
			ProductID: &e.productID, Quantity: intp(qty), UnitPrice: dec(unit), ItemTotal: &total,
		}},
		TotalAmount: &total,
		FinalAmount: &total,
	}
}

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestIntegration_DeviceSaleWithDossier(t *testing.T) {
	env := setupPostgres(t, 10)
	ctx := context.Background()

	req := dto.CreateSaleRequest{
		PatientID: &env.patientID,
		Items: []dto.SaleItemRequest{
			{MedicalDeviceID: &env.deviceID, Quantity: intp(1), UnitPrice: dec("2400"), ItemTotal: dec("2400"), SerialNumber: strp("SN-2231")},
			{ProductID: &env.productID, Quantity: intp(2), UnitPrice: dec("45.500"), ItemTotal: dec("91")},
		},
		TotalAmount: dec("2491"),
		FinalAmount: dec("2491"),
		Payment: []dto.PaymentInstrumentRequest{
			{Method: "especes", Amount: dec("2191")},
			{Method: "cnam", Amount: dec("300"), Insurance: &dto.InsuranceClaimRequest{DossierNumber: "D-001", BondType: "CPAP", DevicePrice: dec("2400")}},
		},
	}
	resp, err := env.svc.CreateSale(ctx, env.actorID, req)
	require.NoError(t, err)
	assert.Equal(t, baseInvoice, resp.InvoiceNumber)

	var device model.MedicalDevice
	require.NoError(t, env.db.First(&device, "id = ?", env.deviceID).Error)
	assert.Equal(t, model.DeviceStatusSold, device.Status)
	assert.Equal(t, env.patientID, *device.PatientID)

	var stock model.Stock
	require.NoError(t, env.db.First(&stock, "id = ?", env.stockID).Error)
	assert.Equal(t, 8, stock.Quantity)

	var dossier model.CNAMDossier
	require.NoError(t, env.db.Preload("StepHistory").First(&dossier, "sale_id = ?", resp.ID).Error)
	assert.True(t, dossier.ComplementAmount.Equal(*dec("2100")))
	assert.Len(t, dossier.StepHistory, 1)

	assert.EqualValues(t, 2, count(t, env.db, &model.PaymentDetail{}))
	assert.EqualValues(t, 1, count(t, env.db, &model.PatientHistory{}))
	assert.EqualValues(t, 1, count(t, env.db, &model.StockMovement{}))
}

func TestIntegration_ConcurrentSalesGetDistinctInvoiceNumbers(t *testing.T) {
	env := setupPostgres(t, 100)
	ctx := context.Background()
	const n = 8

	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.svc.CreateSale(ctx, env.actorID, env.productSale(1, "10"))
			errs[i] = err
			if err == nil {
				numbers[i] = resp.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(numbers)
	want := []string{baseInvoice}
	for i := 1; i < n; i++ {
		want = append(want, fmt.Sprintf("%s-%03d", baseInvoice, i))
	}
	assert.Equal(t, want, numbers)

	var stock model.Stock
	require.NoError(t, env.db.First(&stock, "id = ?", env.stockID).Error)
	assert.Equal(t, 100-n, stock.Quantity, "row lock serializes decrements")
}

func TestIntegration_StockFloorsAtZero(t *testing.T) {
	env := setupPostgres(t, 2)

	_, err := env.svc.CreateSale(context.Background(), env.actorID, env.productSale(5, "10"))
	require.NoError(t, err)

	var stock model.Stock
	require.NoError(t, env.db.First(&stock, "id = ?", env.stockID).Error)
	assert.Zero(t, stock.Quantity)

	var mv model.StockMovement
	require.NoError(t, env.db.First(&mv, "stock_id = ?", env.stockID).Error)
	assert.Equal(t, -5, mv.Quantity)
	assert.Equal(t, 2, mv.QuantityBefore)
	assert.Equal(t, 0, mv.QuantityAfter)
}

func TestIntegration_FailureRollsBackEverything(t *testing.T) {
	env := setupPostgres(t, 10)

	req := env.productSale(1, "10")
	unknown := uuid.New()
	req.Items = append(req.Items, dto.SaleItemRequest{MedicalDeviceID: &unknown, Quantity: intp(1), UnitPrice: dec("0"), ItemTotal: dec("0")})
	req.Payment = []dto.PaymentInstrumentRequest{cash("10")}

	_, err := env.svc.CreateSale(context.Background(), env.actorID, req)
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apierror.CategoryInvalidReference, se.Category)

	assert.Zero(t, count(t, env.db, &model.Sale{}))
	assert.Zero(t, count(t, env.db, &model.Payment{}))
	assert.Zero(t, count(t, env.db, &model.StockMovement{}))
	var stock model.Stock
	require.NoError(t, env.db.First(&stock, "id = ?", env.stockID).Error)
	assert.Equal(t, 10, stock.Quantity)
}
