package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hearthd/hearth/internal/config"
	"github.com/hearthd/hearth/internal/logging"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/queue"
	"github.com/hearthd/hearth/internal/recurrence"
	"github.com/hearthd/hearth/internal/requirements"
	"github.com/hearthd/hearth/internal/snapshot"
	"github.com/hearthd/hearth/internal/store"
)

const hearthDirName = ".hearth"

// Settings keys for persisted context overrides.
const (
	settingLocation    = "context.location"
	settingPeople      = "context.people"
	settingContextTags = "context.tags"
)

// hearthPath returns the path to a file inside .hearth/.
func hearthPath(parts ...string) string {
	elems := append([]string{hearthDirName}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if hearth is not initialized.
func mustStore() (*store.Store, error) {
	dbPath := hearthPath("hearth.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("hearth not initialized. Run: hearth init")
	}
	return store.New(dbPath)
}

// loadConfig reads .hearth/config.yaml, falling back to defaults if the
// file is missing.
func loadConfig() *config.Config {
	cfg, err := config.Load(hearthPath("config.yaml"))
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// openLogger opens the diagnostics log; failures degrade to a nil logger,
// which discards writes.
func openLogger() *logging.Logger {
	lg, err := logging.New(hearthDirName)
	if err != nil {
		return nil
	}
	return lg
}

// newBuilder wires a queue builder to the store and restores its
// cross-call eligibility memory from the last invocation.
func newBuilder(s *store.Store, cfg *config.Config) *queue.Builder {
	policy := queue.Policy{
		HistoryCap:  cfg.HistoryCap,
		PeopleMatch: requirements.PeoplePolicy(cfg.PeopleMatch),
		Recurrence: recurrence.Options{
			GraceFraction: float64(cfg.GracePercent) / 100,
			AtRiskMargin:  time.Duration(cfg.AtRiskMarginHours) * time.Hour,
		},
	}
	s.SetHistoryCap(cfg.HistoryCap)
	b := queue.NewBuilder(s, s, policy)
	if blocked, unblockedAt, err := s.LoadEligibility(); err == nil {
		b.RestoreMemory(queue.Memory{Blocked: blocked, UnblockedAt: unblockedAt})
	}
	return b
}

// saveMemory writes the builder's eligibility memory back to the store.
func saveMemory(s *store.Store, b *queue.Builder) {
	m := b.ExportMemory()
	_ = s.SaveEligibility(m.Blocked, m.UnblockedAt)
}

// buildSnapshot assembles the context for one queue run from persisted
// overrides, sensors-derived presence being out of scope for the CLI.
func buildSnapshot(s *store.Store, cfg *config.Config, availableTime *int) model.ContextSnapshot {
	ov := snapshot.Overrides{AvailableTime: availableTime}
	if loc, _ := s.GetSetting(settingLocation); loc != "" {
		ov.Location = loc
	}
	if people, _ := s.GetSetting(settingPeople); people != "" {
		_ = json.Unmarshal([]byte(people), &ov.People)
	}
	if tags, _ := s.GetSetting(settingContextTags); tags != "" {
		_ = json.Unmarshal([]byte(tags), &ov.ContextTags)
	}
	// The CLI has no presence source, so the configured default location
	// stands in unless an explicit override says otherwise.
	if ov.Location == "" {
		ov.Location = cfg.DefaultLocation
	}
	return snapshot.Build(time.Now(), ov.People, nil, cfg.DefaultLocation, ov)
}

// logDiagnostics records queue diagnostics for later inspection.
func logDiagnostics(lg *logging.Logger, diags []queue.Diagnostic) {
	for _, d := range diags {
		lg.Printf("task %s [%s]: %s", d.TaskID, d.Stage, d.Detail)
	}
}

// shortID trims a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
