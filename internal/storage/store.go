package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/imdp/internal/experiment"
	"github.com/san-kum/imdp/internal/grid"
	"github.com/san-kum/imdp/internal/synthesis"
)

const (
	metadataFile   = "metadata.json"
	statesFile     = "states.csv"
	inputsFile     = "inputs.csv"
	controllerFile = "controller.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Params     map[string]float64 `json:"params,omitempty"`
	Horizon    int                `json:"horizon"`
	Resolution string             `json:"resolution"`
	Status     string             `json:"status"`
	Iterations int                `json:"iterations"`
	Residual   float64            `json:"residual"`
	Warning    string             `json:"warning,omitempty"`
	States     int                `json:"states"`
	Inputs     int                `json:"inputs"`
	Target     int                `json:"target"`
	Avoid      int                `json:"avoid"`
	Entries    int                `json:"entries"`
	Failures   int                `json:"failures"`
	Timings    experiment.Timings `json:"timings"`
}

func metadata(id string, params map[string]float64, seed int64, run *experiment.Run) RunMetadata {
	res := run.Result
	meta := RunMetadata{
		ID:         id,
		Model:      run.Problem.Name,
		Timestamp:  time.Now(),
		Seed:       seed,
		Params:     params,
		Horizon:    res.Horizon,
		Resolution: res.Resolution.String(),
		Status:     res.Status.String(),
		Iterations: res.Iterations,
		Residual:   res.Residual,
		States:     run.States.Len(),
		Inputs:     run.IMDP.Inputs(),
		Target:     len(run.Labels.Target()),
		Avoid:      len(run.Labels.Avoid()),
		Entries:    run.IMDP.Entries(),
		Failures:   len(run.IMDP.Failures()),
		Timings:    run.Timings,
	}
	if res.Warning != nil {
		meta.Warning = res.Warning.Error()
	}
	return meta
}

// Save writes a run directory and returns its id.
func (s *Store) Save(params map[string]float64, seed int64, run *experiment.Run) (string, error) {
	runID := fmt.Sprintf("%s_%s", run.Problem.Name, xid.New().String())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(metadata(runID, params, seed, run)); err != nil {
		return "", err
	}

	labelOf := func(i int) string { return run.Labels.Of(i).String() }
	if err := writeGrid(filepath.Join(runDir, statesFile), "x", run.States, labelOf); err != nil {
		return "", err
	}
	if run.Inputs != nil {
		if err := writeGrid(filepath.Join(runDir, inputsFile), "u", run.Inputs, nil); err != nil {
			return "", err
		}
	}
	if err := writeController(filepath.Join(runDir, controllerFile), run.Result.Controller()); err != nil {
		return "", err
	}

	return runID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeGrid(path, prefix string, g *grid.Grid, labelOf func(int) string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)

	header := []string{"index"}
	for i := 0; i < g.Dim(); i++ {
		header = append(header, fmt.Sprintf("%s%d", prefix, i))
	}
	if labelOf != nil {
		header = append(header, "label")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < g.Len(); i++ {
		row := []string{strconv.Itoa(i)}
		for _, v := range g.Center(i) {
			row = append(row, formatFloat(v))
		}
		if labelOf != nil {
			row = append(row, labelOf(i))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func writeController(path string, entries []synthesis.ControllerEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"state", "step", "input", "value", "lower", "upper"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			strconv.Itoa(e.State),
			strconv.Itoa(e.Step),
			strconv.Itoa(e.Input),
			formatFloat(e.Value),
			formatFloat(e.Lower),
			formatFloat(e.Upper),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadController(runID string) ([]synthesis.ControllerEntry, error) {
	path := filepath.Join(s.baseDir, runID, controllerFile)
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	entries := make([]synthesis.ControllerEntry, 0, len(records))
	for line, record := range records {
		if len(record) != 6 {
			return nil, fmt.Errorf("%s line %d: expected 6 fields, got %d", path, line+2, len(record))
		}
		var e synthesis.ControllerEntry
		ints := []*int{&e.State, &e.Step, &e.Input}
		for i, p := range ints {
			if *p, err = strconv.Atoi(record[i]); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
			}
		}
		floats := []*float64{&e.Value, &e.Lower, &e.Upper}
		for i, p := range floats {
			if *p, err = strconv.ParseFloat(record[3+i], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// StateRecord is one row of states.csv.
type StateRecord struct {
	Index  int
	Center []float64
	Label  string
}

func (s *Store) LoadStates(runID string) ([]StateRecord, error) {
	path := filepath.Join(s.baseDir, runID, statesFile)
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	states := make([]StateRecord, 0, len(records))
	for line, record := range records {
		if len(record) < 3 {
			return nil, fmt.Errorf("%s line %d: expected at least 3 fields, got %d", path, line+2, len(record))
		}
		idx, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
		}
		rec := StateRecord{Index: idx, Label: record[len(record)-1]}
		for _, field := range record[1 : len(record)-1] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
			}
			rec.Center = append(rec.Center, v)
		}
		states = append(states, rec)
	}
	return states, nil
}
