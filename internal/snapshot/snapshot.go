// Package snapshot implements the status snapshot: an atomically
// written JSON file describing the live work set, written by
// write-to-temp-then-rename so readers never observe a partial write.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autodevhq/autodev/internal/phaseengine"
)

// ActiveItem mirrors phaseengine.ActiveItem for the JSON wire shape.
type ActiveItem struct {
	WorkID   string `json:"work_id"`
	Kind     string `json:"queue_type"`
	RepoName string `json:"repo_name"`
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Phase    string `json:"phase"`
}

// Counters is the aggregate (summed across repos) view exposed in the
// top-level snapshot.
type Counters struct {
	WIP    int `json:"wip"`
	Done   int `json:"done"`
	Skip   int `json:"skip"`
	Failed int `json:"failed"`
}

// Status is the full JSON document written to daemon.status.json.
type Status struct {
	UpdatedAt   string       `json:"updated_at"`
	UptimeSecs  int64        `json:"uptime_secs"`
	ActiveItems []ActiveItem `json:"active_items"`
	Counters    Counters     `json:"counters"`
}

// Writer writes the status file atomically on each tick.
type Writer struct {
	path      string
	startedAt time.Time
}

func NewWriter(home string, startedAt time.Time) *Writer {
	return &Writer{path: filepath.Join(home, "daemon.status.json"), startedAt: startedAt}
}

// Write builds a Status from the engine's current state and persists it.
func (w *Writer) Write(engine *phaseengine.Engine) error {
	active := engine.ActiveItems()
	items := make([]ActiveItem, 0, len(active))
	for _, it := range active {
		items = append(items, ActiveItem{
			WorkID: it.WorkID, Kind: it.Kind, RepoName: it.RepoName,
			Number: it.Number, Title: it.Title, Phase: it.Phase,
		})
	}

	var total Counters
	for _, c := range engine.Counters() {
		total.WIP += c.WIP
		total.Done += c.Done
		total.Skip += c.Skip
		total.Failed += c.Failed
	}

	status := Status{
		UpdatedAt:   time.Now().Format(time.RFC3339),
		UptimeSecs:  int64(time.Since(w.startedAt).Seconds()),
		ActiveItems: items,
		Counters:    total,
	}

	return w.writeAtomic(status)
}

func (w *Writer) writeAtomic(status Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing status temp file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("renaming status file: %w", err)
	}
	return nil
}

// Remove deletes the status file at shutdown. Best-effort.
func (w *Writer) Remove() {
	_ = os.Remove(w.path)
}

// Read loads and parses the status file. Readers tolerate a missing file
// (daemon not running) and malformed content (mid-write race, vanishingly
// rare given rename-atomicity, but the CLI should not crash on it).
func Read(home string) (*Status, error) {
	data, err := os.ReadFile(filepath.Join(home, "daemon.status.json"))
	if err != nil {
		return nil, err
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("parsing status file: %w", err)
	}
	return &status, nil
}
