package kv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/eeKV/cmd/util"
	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for eeKV servers",
		Long:    "Runs a set of benchmarks against an object shard. The benchmarks use the keys [key-base, key-base+keys) and format the store when they are done.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSize = 256
	perfNumThreads     = 10
	perfKeySpread      = 16
	perfKeyBase        = 0x80
	perfSkip           = make([]string, 0)
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency metrics.Timer
	errors  metrics.Counter
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. store,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 256, util.WrapString("How large the value for the store-large test should be (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("How many different keys to use for the tests"))
	key = "key-base"
	perfTestCmd.Flags().Int(key, 0x80, util.WrapString("First key used by the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSize = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfKeyBase = viper.GetInt("key-base")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread < 1 || perfKeyBase < 0 || perfKeyBase+perfKeySpread > int(db.SentinelKey) {
		return fmt.Errorf("keys [%d, %d) exceed the key space [0, %d)", perfKeyBase, perfKeyBase+perfKeySpread, int(db.SentinelKey))
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for eeKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	small := []byte("test")
	large := make([]byte, perfLargeValueSize)
	fill := func(k db.Key) error { return rpcStore.Store(k, small) }

	results := make(map[string]perfResult)
	order := []string{"store", "store-large", "get", "find", "delete", "mixed"}

	results["store"] = benchmark("store", nil, func(k db.Key, _ int) error {
		return rpcStore.Store(k, small)
	})
	results["store-large"] = benchmark("store-large", nil, func(k db.Key, _ int) error {
		return rpcStore.Store(k, large)
	})
	results["get"] = benchmark("get", fill, func(k db.Key, _ int) error {
		_, _, err := rpcStore.Get(k)
		return err
	})
	results["find"] = benchmark("find", fill, func(k db.Key, _ int) error {
		_, _, err := rpcStore.Find(k)
		return err
	})
	results["delete"] = benchmark("delete", fill, func(k db.Key, _ int) error {
		// deleting a missing key is expected once every key is gone
		if err := rpcStore.Delete(k); err != nil && !errors.Is(err, db.ErrNoSuchObject) {
			return err
		}
		return nil
	})
	results["mixed"] = benchmark("mixed", fill, func(k db.Key, i int) error {
		var err error
		switch i % 4 {
		case 0:
			err = rpcStore.Store(k, small)
		case 1:
			_, _, err = rpcStore.Get(k)
		case 2:
			_, _, err = rpcStore.Find(k)
		case 3:
			_, err = rpcStore.List()
		}
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op in parallel on the test keys. setup is called for every key before the timer starts.
func benchmark(test string, setup func(db.Key) error, op func(k db.Key, i int) error) perfResult {
	res := perfResult{latency: metrics.NewTimer(), errors: metrics.NewCounter()}
	if shouldSkip(test) {
		printResult(test, res)
		return res
	}

	res.bench = testing.Benchmark(func(b *testing.B) {
		if setup != nil {
			for i := 0; i < perfKeySpread; i++ {
				if err := setup(testKey(i)); err != nil {
					log.Printf("(%s) - error preparing key: %v\n", test, err)
				}
			}
		}
		// the shard is reset after every test
		b.Cleanup(func() {
			if err := rpcStore.Format(); err != nil {
				log.Printf("(%s) - error formatting the store: %v\n", test, err)
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				err := op(testKey(counter), counter)
				res.latency.UpdateSince(start)
				if err != nil {
					res.errors.Inc(1)
					log.Printf("(%s) - error: %v\n", test, err)
				}
				counter++
			}
		})
	})

	printResult(test, res)
	return res
}

func testKey(i int) db.Key {
	return db.Key(perfKeyBase + i%perfKeySpread)
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, res perfResult) {
	if res.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(res.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := res.latency.Percentiles([]float64{0.5, 0.99})

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\terrors=%d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(p[0]), time.Duration(p[1]), res.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range order {
		res := results[test]
		var nsPerOp, opsPerSec float64
		skipped := "true"
		if res.bench.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(res.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := res.latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			strconv.FormatInt(res.errors.Count(), 10),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
