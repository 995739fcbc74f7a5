package emeeprom

// current returns the sequence number of the last written row. The cached row is
// verified first (main, then mirror); if it cannot be verified, or nothing is
// cached, the last written row is recovered by a full scan. A blank cached row is
// not a checksum failure.
func (e *Engine) current() (uint32, Status) {
	if e.cfg.SimpleMode {
		return 0, StatusSuccess
	}
	if !e.lastKnown {
		return e.scan()
	}

	r := e.rowAt(e.last, false)
	if r.state() == RowValid {
		return r.seq(), StatusSuccess
	}
	blank := r.state() == RowNeverWritten
	if e.cfg.RedundantCopy {
		m := e.rowAt(e.last, true)
		if m.state() == RowValid {
			redundantCopyUsedTotal.Inc()
			log.Warningf("cached row %d failed checksum, using redundant copy", e.last)
			return m.seq(), StatusRedundantCopyUsed
		}
		blank = blank && m.state() == RowNeverWritten
	}

	// nothing written since the last scan, or the flash was erased behind our back
	if blank {
		return e.scan()
	}
	checksumFailuresTotal.Inc()
	log.Warningf("cached row %d failed checksum, rescanning", e.last)
	seq, _ := e.scan()
	return seq, StatusBadChecksum
}

// scan finds the valid row with the highest sequence number, looking at the main
// area first and at the mirror second. Without any valid row the log restarts
// behind row 0 with sequence number 0.
func (e *Engine) scan() (uint32, Status) {
	recoveryScansTotal.Inc()

	var (
		best   uint32
		maxSeq uint32
		status = StatusSuccess
	)
	for i := uint32(0); i < e.total; i++ {
		if r := e.rowAt(i, false); r.state() == RowValid && r.seq() > maxSeq {
			best, maxSeq = i, r.seq()
		}
	}
	if e.cfg.RedundantCopy {
		for i := uint32(0); i < e.total; i++ {
			if r := e.rowAt(i, true); r.state() == RowValid && r.seq() > maxSeq {
				best, maxSeq, status = i, r.seq(), StatusRedundantCopyUsed
			}
		}
	}

	e.last, e.lastKnown = best, true
	log.Debugf("recovery scan: last row %d, seq %d (%s)", best, maxSeq, status)
	return maxSeq, status
}
