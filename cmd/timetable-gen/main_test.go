package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Likith-04/Tibl.ai/internal/service"
	"github.com/Likith-04/Tibl.ai/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "secret", Expiration: time.Hour},
		Scheduler: config.SchedulerConfig{
			Days:           []string{"MON", "TUE", "WED", "THU", "FRI"},
			TimeSlots:      []string{"09:00-10:00", "10:00-11:00", "11:00-11:20", "11:20-12:20", "12:20-13:20", "13:20-14:00 (Lunch)", "14:00-15:00", "15:00-16:00", "16:00-17:00"},
			BlockedSlots:   []int{2, 5},
			LabStarts:      []int{0, 3, 6, 7},
			BranchSections: []config.BranchSections{{Branch: "ISE", Letters: []string{"D", "E"}}},
			LabRooms:       map[string][]string{"ISE": {"ISE_Lab1", "ISE_Lab2"}},
			Seed:           42,
		},
	}
}

func TestGenerateWritesFiles(t *testing.T) {
	dir := t.TempDir()
	subjects := filepath.Join(dir, "subjects.csv")
	require.NoError(t, os.WriteFile(subjects, []byte("Subject Name,Branch,Subject Type,Teacher\nNetworks,ISE,Theory,T1\nNetworks Lab,ISE,Lab,L1\n"), 0o600))
	out := filepath.Join(dir, "out")

	var buf bytes.Buffer
	err := generate(context.Background(), &buf, testConfig(), options{subjects: subjects, out: out, seed: 3}, zap.NewNop())
	require.NoError(t, err)

	report := buf.String()
	assert.Contains(t, report, "(seed 3)")
	assert.Contains(t, report, "sections: 2")
	assert.Contains(t, report, "lab rooms shared across sections:")
	assert.Contains(t, report, service.LatestArtifact)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var csvs int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".csv") {
			csvs++
		}
	}
	assert.Equal(t, 2, csvs)
}

func TestGenerateMissingSubjects(t *testing.T) {
	err := generate(context.Background(), &bytes.Buffer{}, testConfig(), options{subjects: filepath.Join(t.TempDir(), "none.csv"), out: t.TempDir()}, zap.NewNop())
	assert.Error(t, err)
}

func TestIssueToken(t *testing.T) {
	cfg := testConfig()
	var buf bytes.Buffer
	require.NoError(t, issueToken(&buf, cfg, options{issueToken: "admin-1", role: "ADMIN"}))

	token := strings.SplitN(buf.String(), "\n", 2)[0]
	claims, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, "ADMIN", string(claims.Role))
}

func TestImportCatalogRequiresDatabase(t *testing.T) {
	err := importCatalog(context.Background(), testConfig(), options{}, zap.NewNop())
	assert.Error(t, err)
}
