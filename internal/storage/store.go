package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrBadSweep = errors.New("storage: malformed sweep")

const (
	metadataFile  = "metadata.json"
	equationsFile = "equations.txt"
	routineFile   = "routine.json"
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
	ID        string             `json:"id"`
	Mechanism string             `json:"mechanism"`
	Timestamp time.Time          `json:"timestamp"`
	Notation  string             `json:"notation"`
	States    []string           `json:"states"`
	Arguments []string           `json:"arguments"`
	Ops       int                `json:"ops"`
	Verified  bool               `json:"verified"`
	Bindings  map[string]float64 `json:"bindings,omitempty"`
	// Timings holds stage durations in seconds.
	Timings map[string]float64 `json:"timings"`
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Save writes a derivation run and returns its id.
func (s *Store) Save(meta RunMetadata, equations []string, routine json.Marshaler) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.ID = fmt.Sprintf("%s_%d", meta.Mechanism, meta.Timestamp.UnixNano())
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if routine != nil {
		if err := writeJSON(filepath.Join(runDir, routineFile), routine); err != nil {
			return "", err
		}
	}

	text := strings.Join(equations, "\n")
	if len(equations) > 0 {
		text += "\n"
	}
	if err := os.WriteFile(filepath.Join(runDir, equationsFile), []byte(text), 0644); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// SaveSweep writes rows under header as sweep_<name>.csv in the run.
func (s *Store) SaveSweep(runID, name string, header []string, rows [][]float64) error {
	path := filepath.Join(s.baseDir, runID, "sweep_"+name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, r := range rows {
		if len(r) != len(header) {
			return fmt.Errorf("%w: row %d has %d fields, header %d", ErrBadSweep, i, len(r), len(header))
		}
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

func (s *Store) LoadEquations(runID string) ([]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, equationsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// LoadRoutine returns the raw routine descriptor of a run.
func (s *Store) LoadRoutine(runID string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, routineFile))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (s *Store) LoadSweep(runID, name string) ([]string, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "sweep_"+name+".csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: no header", ErrBadSweep)
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: row %d: %w", ErrBadSweep, i, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}
