package eekv

import "github.com/VictoriaMetrics/metrics"

var (
	opsStore       = metrics.NewCounter(`eekv_object_ops_total{op="store"}`)
	opsDelete      = metrics.NewCounter(`eekv_object_ops_total{op="delete"}`)
	opsFormat      = metrics.NewCounter(`eekv_object_ops_total{op="format"}`)
	opsErase       = metrics.NewCounter(`eekv_object_ops_total{op="erase"}`)
	redundantReads = metrics.NewCounter(`eekv_object_redundant_copy_used_total`)
)
