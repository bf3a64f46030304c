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
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	FixedDt     float64            `json:"fixed_dt"`
	MaxSubsteps int                `json:"max_substeps"`
	Duration    float64            `json:"duration"`
	Frames      uint64             `json:"frames"`
	Spawned     int                `json:"spawned"`
	Metrics     map[string]float64 `json:"metrics"`
}

var header = []string{"time", "handle", "kind", "x", "y", "z", "qx", "qy", "qz", "qw", "sleeping"}

// Save writes metadata.json and states.csv into a fresh run directory and
// returns the run id.
func (s *Store) Save(meta RunMetadata, samples []Sample) (string, error) {
	if meta.Name == "" {
		meta.Name = "run"
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runID, runDir, err := s.allocate(meta.Name, meta.Timestamp)
	if err != nil {
		return "", err
	}
	meta.ID = runID

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, sm := range samples {
		if err := w.Write(sm.record()); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) allocate(name string, ts time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", name, ts.Unix())
	for i := 0; ; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
	}
}

// List returns saved runs, oldest first. A missing base directory is empty.
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
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads the trajectory of a run. Malformed rows are skipped.
func (s *Store) LoadStates(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
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
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		sm, ok := parseSample(record)
		if !ok {
			continue
		}
		samples = append(samples, sm)
	}
	return samples, nil
}

func parseSample(record []string) (Sample, bool) {
	if len(record) != len(header) {
		return Sample{}, false
	}
	var nums [8]float64
	for i, col := range [8]int{0, 3, 4, 5, 6, 7, 8, 9} {
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return Sample{}, false
		}
		nums[i] = v
	}
	sleeping, err := strconv.ParseBool(record[10])
	if err != nil {
		return Sample{}, false
	}
	return Sample{
		Time:     nums[0],
		Handle:   record[1],
		Kind:     record[2],
		Position: [3]float64{nums[1], nums[2], nums[3]},
		Rotation: [4]float64{nums[4], nums[5], nums[6], nums[7]},
		Sleeping: sleeping,
	}, true
}
