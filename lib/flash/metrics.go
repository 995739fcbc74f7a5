package flash

import "github.com/VictoriaMetrics/metrics"

var (
	rowProgramsTotal = metrics.NewCounter(`eekv_flash_row_programs_total`)
	rowErasesTotal   = metrics.NewCounter(`eekv_flash_row_erases_total`)
	rowFailuresTotal = metrics.NewCounter(`eekv_flash_row_failures_total`)
)
