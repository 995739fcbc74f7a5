package eekv

import "github.com/ValentinKolb/eeKV/lib/db/util"

// infoMeta is the implementation specific part of db.DatabaseInfo.
type infoMeta struct {
	State       string     `json:"state" yaml:"state"`
	NumWrites   uint32     `json:"num_writes" yaml:"num_writes"`
	FreeBytes   int        `json:"free_bytes" yaml:"free_bytes"`
	ObjectSizes util.Stats `json:"object_sizes" yaml:"object_sizes"`
	MedianSize  int        `json:"median_size_estimate" yaml:"median_size_estimate"`
	P90Size     int        `json:"p90_size_estimate" yaml:"p90_size_estimate"`
}

// objectStats collects payload sizes during a walk.
type objectStats struct {
	values []float64
	hist   *util.SizeHistogram
}

func (s *objectStats) add(size uint32) {
	if s.hist == nil {
		s.hist = util.NewSizeHistogram()
	}
	s.values = append(s.values, float64(size))
	s.hist.AddSample(int(size))
}

func (s *objectStats) count() int {
	return len(s.values)
}

func (s *objectStats) stats() util.Stats {
	return util.NewStats(s.values)
}

func (s *objectStats) median() int {
	if s.hist == nil {
		return 0
	}
	return s.hist.MedianEstimate()
}

func (s *objectStats) percentile(p int) int {
	if s.hist == nil {
		return 0
	}
	return s.hist.GetPercentileEstimate(p)
}
