package emeeprom

import "github.com/VictoriaMetrics/metrics"

var (
	rowWritesTotal         = metrics.NewCounter(`eekv_emeeprom_row_writes_total`)
	writeFailuresTotal     = metrics.NewCounter(`eekv_emeeprom_write_failures_total`)
	checksumFailuresTotal  = metrics.NewCounter(`eekv_emeeprom_checksum_failures_total`)
	redundantCopyUsedTotal = metrics.NewCounter(`eekv_emeeprom_redundant_copy_used_total`)
	recoveryScansTotal     = metrics.NewCounter(`eekv_emeeprom_recovery_scans_total`)
)
