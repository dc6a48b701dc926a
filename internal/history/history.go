/*
Package history remembers which filings were delivered to which recipients
during the current report day, so repeated submissions of the same filing can
be skipped.
*/
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/filing"
)

const (
	historyFileName = "delivery_history.json"
	historyDirName  = "annrelay"
	DefaultTimeZone = "Asia/Kolkata"
)

type History struct {
	ReportDate string            `json:"reportDate"`
	Delivered  map[string]string `json:"delivered"`
}

type Manager struct {
	history         History
	mutex           sync.Mutex
	historyFilePath string
	reportLocation  *time.Location
	logger          *zap.Logger
	now             func() time.Time
}

// NewManager loads today's history from dir. An empty dir uses a directory
// under os.TempDir().
func NewManager(dir, tzName string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = filepath.Join(os.TempDir(), historyDirName)
	}
	if tzName == "" {
		tzName = DefaultTimeZone
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone name '%s': %w", tzName, err)
	}

	m := &Manager{
		historyFilePath: filepath.Join(dir, historyFileName),
		reportLocation:  loc,
		logger:          logger,
		now:             time.Now,
	}

	m.loadHistory()
	return m, nil
}

// FilingID identifies raw input across submissions. Filing records use their
// exchange hash; anything else is a digest of its whitespace-normalized text,
// so the id is known before any enhancement runs.
func FilingID(raw string) string {
	if rec, ok := filing.ParseBSEData(raw); ok && rec.Hash != "" {
		return rec.Hash
	}
	norm := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:8])
}

// Key identifies one filing sent to one recipient.
func Key(filingID, jid string) string {
	return filingID + "|" + jid
}

func (m *Manager) loadHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	today := m.getCurrentReportDate()
	m.history = History{ReportDate: today, Delivered: make(map[string]string)}

	data, err := os.ReadFile(m.historyFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("history file not found, starting fresh", zap.String("path", m.historyFilePath))
			return
		}
		m.logger.Warn("failed to read history file, starting fresh", zap.String("path", m.historyFilePath), zap.Error(err))
		return
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Warn("failed to decode history file, starting fresh", zap.Error(err))
		return
	}

	if loaded.ReportDate == today && loaded.Delivered != nil {
		m.history = loaded
		m.logger.Info("loaded delivery history", zap.Int("deliveries", len(loaded.Delivered)), zap.String("date", today))
		return
	}
	m.logger.Info("history is from a previous day, starting fresh", zap.String("previous", loaded.ReportDate), zap.String("date", today))
}

func (m *Manager) saveHistory() {
	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		m.logger.Error("failed to encode history", zap.Error(err))
		return
	}

	if err := os.WriteFile(m.historyFilePath, data, 0o644); err != nil {
		m.logger.Error("failed to write history file", zap.String("path", m.historyFilePath), zap.Error(err))
	}
}

// rollover must be called with the mutex held.
func (m *Manager) rollover() {
	if today := m.getCurrentReportDate(); m.history.ReportDate != today {
		m.history = History{ReportDate: today, Delivered: make(map[string]string)}
	}
}

// Delivered reports whether the filing already went to jid today, and under
// which message id.
func (m *Manager) Delivered(filingID, jid string) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rollover()
	id, ok := m.history.Delivered[Key(filingID, jid)]
	return id, ok
}

func (m *Manager) Record(filingID, jid, messageID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rollover()
	m.history.Delivered[Key(filingID, jid)] = messageID
	m.saveHistory()
}

func (m *Manager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover()
	return len(m.history.Delivered)
}

func (m *Manager) HistoryFilePath() string {
	return m.historyFilePath
}

func (m *Manager) getCurrentReportDate() string {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	return now().In(m.reportLocation).Format("2006-01-02")
}
