package emeeprom

// Info describes the derived geometry and log position of an engine.
type Info struct {
	Config        Config `json:"config" yaml:"config"`
	RowSize       uint32 `json:"row_size" yaml:"row_size"`
	NumberOfRows  uint32 `json:"number_of_rows" yaml:"number_of_rows"`
	BytesPerRow   uint32 `json:"bytes_per_row" yaml:"bytes_per_row"`
	ChunkSize     uint32 `json:"chunk_size" yaml:"chunk_size"`
	PhysicalRows  uint32 `json:"physical_rows" yaml:"physical_rows"`
	PhysicalBytes uint64 `json:"physical_bytes" yaml:"physical_bytes"`
	LastRow       uint32 `json:"last_row" yaml:"last_row"`
	NumWrites     uint32 `json:"num_writes" yaml:"num_writes"`
}

// Info returns the geometry of the engine. In extended mode it recovers the last
// written row if needed.
func (e *Engine) Info() Info {
	info := Info{
		Config:        e.cfg,
		RowSize:       e.rowSize,
		NumberOfRows:  e.rows,
		BytesPerRow:   e.bir,
		ChunkSize:     e.chunk,
		PhysicalRows:  e.total,
		PhysicalBytes: PhysicalSize(e.cfg, e.rowSize),
	}
	if !e.cfg.SimpleMode {
		info.NumWrites, _ = e.current()
		info.LastRow = e.last
	}
	return info
}

// RowInfo is the decoded header of one physical row.
type RowInfo struct {
	Index  uint32   `json:"index" yaml:"index"`
	Mirror bool     `json:"mirror" yaml:"mirror"`
	State  RowState `json:"state" yaml:"state"`
	Seq    uint32   `json:"seq" yaml:"seq"`
	Addr   uint32   `json:"addr" yaml:"addr"`
	Length uint32   `json:"length" yaml:"length"`
}

// Rows decodes the header of every physical row, main area first.
// Simple mode rows carry no header and yield nil.
func (e *Engine) Rows() []RowInfo {
	if e.cfg.SimpleMode {
		return nil
	}
	areas := []bool{false}
	if e.cfg.RedundantCopy {
		areas = append(areas, true)
	}

	var out []RowInfo
	for _, mirror := range areas {
		for i := uint32(0); i < e.total; i++ {
			r := e.rowAt(i, mirror)
			out = append(out, RowInfo{
				Index:  i,
				Mirror: mirror,
				State:  r.state(),
				Seq:    r.seq(),
				Addr:   r.addr(),
				Length: r.length(),
			})
		}
	}
	return out
}

// MarshalText renders the state by name in JSON and YAML output.
func (s RowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RowState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "valid":
		*s = RowValid
	case "never-written":
		*s = RowNeverWritten
	case "corrupted":
		*s = RowCorrupted
	default:
		return newError(StatusBadData, "unknown row state %q", text)
	}
	return nil
}
