//go:build integration

package firestore

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pconfig "github.com/agrilot/api/internal/platform/config"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
	"github.com/agrilot/api/internal/repositories"
)

func TestProvisioningRepositoriesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "provisioning-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	order := domain.Order{
		ID:          "ord_integration",
		OrderNumber: "ORD-TEST1",
		ClientName:  "Vergers Martin",
		Status:      domain.OrderStatusPending,
		Priority:    domain.OrderPriorityNormal,
		Items: []domain.OrderItem{
			{Name: "Pommes Gala", Quantity: 1200, Unit: "kg", ProcessingTime: 90},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := registry.Orders().Insert(ctx, order); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	lotID, err := registry.ProductionLots().Create(ctx, domain.ProductionLot{
		LotNumber: order.OrderNumber,
		Type:      "production",
		Status:    domain.LotStatusDraft,
		Header: domain.LotHeader{
			Date:         now,
			Product:      "Pommes Gala",
			ClientName:   order.ClientName,
			ClientLotRef: order.OrderNumber,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create production lot: %v", err)
	}
	if strings.TrimSpace(lotID) == "" {
		t.Fatal("expected store-assigned production lot id")
	}

	lot, err := registry.ProductionLots().FindByID(ctx, lotID)
	if err != nil {
		t.Fatalf("find production lot: %v", err)
	}
	if lot.LotNumber != order.OrderNumber || lot.Status != domain.LotStatusDraft {
		t.Fatalf("unexpected production lot: %+v", lot)
	}

	if err := registry.Orders().PatchLinkage(ctx, order.ID, repositories.OrderLinkagePatch{
		ProductionLotID: &lotID,
	}, now.Add(time.Second)); err != nil {
		t.Fatalf("patch linkage: %v", err)
	}

	patched, err := registry.Orders().FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if patched.LinkedProductionLotID == nil || *patched.LinkedProductionLotID != lotID {
		t.Fatalf("expected production link %q, got %+v", lotID, patched.LinkedProductionLotID)
	}
	if patched.LinkedQualityLotID != nil {
		t.Fatalf("partial patch must not touch other links, got %+v", patched.LinkedQualityLotID)
	}
	if patched.OrderNumber != order.OrderNumber || len(patched.Items) != 1 {
		t.Fatalf("patch must preserve the rest of the document: %+v", patched)
	}

	log := domain.ProvisionLog{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Steps: []domain.ProvisionStep{
			{Variant: domain.VariantProduction, Status: domain.ProvisionStepSucceeded, ResultID: lotID},
			{Variant: domain.VariantQualityControl, Status: domain.ProvisionStepFailed, Error: "store rejected write"},
		},
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := registry.ProvisionLogs().Save(ctx, log); err != nil {
		t.Fatalf("save provision log: %v", err)
	}

	loaded, err := registry.ProvisionLogs().FindByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find provision log: %v", err)
	}
	if len(loaded.Steps) != 2 || loaded.Attempts != 1 {
		t.Fatalf("unexpected provision log: %+v", loaded)
	}
	failed := loaded.FailedVariants()
	if len(failed) != 1 || failed[0] != domain.VariantQualityControl {
		t.Fatalf("expected only quality control to fail, got %v", failed)
	}

	recordID, err := registry.LegacyQualityRecords().Create(ctx, domain.LegacyQualityRecord{
		LotNumber: order.OrderNumber,
		Form: domain.QualityControlForm{
			Category: "dechets",
			Campaign: "2025-2026",
			Product:  "Pommes Gala",
		},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create legacy record: %v", err)
	}
	if recordID == "" {
		t.Fatal("expected legacy record id")
	}

	records, err := registry.LegacyQualityRecords().ListByLotNumber(ctx, order.OrderNumber)
	if err != nil {
		t.Fatalf("list legacy records: %v", err)
	}
	if len(records) != 1 || records[0].Form.Category != "dechets" {
		t.Fatalf("unexpected legacy records: %+v", records)
	}

	page, err := registry.Orders().List(ctx, repositories.OrderListFilter{
		Status:     []domain.OrderStatus{domain.OrderStatusPending},
		Pagination: domain.Pagination{PageSize: 10},
	})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != order.ID {
		t.Fatalf("unexpected order page: %+v", page)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
