package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return v
}

func TestDefaultsDescribeTheCollegeWeek(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"MON", "TUE", "WED", "THU", "FRI"}, cfg.Scheduler.Days)
	assert.Len(t, cfg.Scheduler.TimeSlots, 9)
	assert.Equal(t, "13:20-14:00 (Lunch)", cfg.Scheduler.TimeSlots[5])
	assert.Equal(t, []int{2, 5}, cfg.Scheduler.BlockedSlots)
	assert.Equal(t, []int{0, 3, 6, 7}, cfg.Scheduler.LabStarts)
	assert.Equal(t, []BranchSections{
		{Branch: "CSE", Letters: []string{"A", "B", "C"}},
		{Branch: "ISE", Letters: []string{"D", "E"}},
		{Branch: "ECE", Letters: []string{"F"}},
	}, cfg.Scheduler.BranchSections)
	assert.Equal(t, []string{"CSE_Lab1", "CSE_Lab2"}, cfg.Scheduler.LabRooms["CSE"])
	assert.Equal(t, []string{"TUE", "THU"}, cfg.Scheduler.PreferredLabDays)
	assert.Equal(t, int64(42), cfg.Scheduler.Seed)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.RunTTL)
	assert.Equal(t, CatalogSourceCSV, cfg.Catalog.Source)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7*24*time.Hour, cfg.Artifacts.Retention)
	assert.Equal(t, time.Hour, cfg.Artifacts.LinkTTL)
}

func TestOverridesAreParsed(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"SCHEDULER_BRANCH_SECTIONS": "mech: X | Y ",
		"SCHEDULER_LAB_ROOMS":       "mech:Workshop",
		"SCHEDULER_SEED":            "7",
		"SCHEDULER_RUN_TTL":         "not-a-duration",
		"CATALOG_SOURCE":            "POSTGRES",
	}))
	require.NoError(t, err)

	assert.Equal(t, []BranchSections{{Branch: "MECH", Letters: []string{"X", "Y"}}}, cfg.Scheduler.BranchSections)
	assert.Equal(t, map[string][]string{"MECH": {"Workshop"}}, cfg.Scheduler.LabRooms)
	assert.Equal(t, int64(7), cfg.Scheduler.Seed)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.RunTTL)
	assert.Equal(t, CatalogSourcePostgres, cfg.Catalog.Source)
}

func TestMalformedSchedulerValuesFail(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"blocked":  {"SCHEDULER_BLOCKED_SLOTS": "2,x"},
		"starts":   {"SCHEDULER_LAB_STARTS": "zero"},
		"sections": {"SCHEDULER_BRANCH_SECTIONS": "CSE"},
		"letters":  {"SCHEDULER_BRANCH_SECTIONS": "CSE:"},
		"rooms":    {"SCHEDULER_LAB_ROOMS": ":Lab"},
		"source":   {"CATALOG_SOURCE": "mysql"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fromViper(newTestViper(overrides))
			assert.Error(t, err)
		})
	}
}
