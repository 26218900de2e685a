package maps

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dGrid/cmd/util"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	gometrics "github.com/rcrowley/go-metrics"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dGrid members",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
	perfLargeValue       []byte
)

// perfTest is one benchmark of the perf command
type perfTest struct {
	name string
	// prefill stores all keys before the benchmark runs
	prefill bool
	// op is called once per iteration with the key and the iteration counter
	op func(key string, counter int) error
}

var perfTests = []perfTest{
	{name: "put", op: func(key string, _ int) error {
		return rpcMap.Put(key, []byte("test"))
	}},
	{name: "put-large", op: func(key string, _ int) error {
		return rpcMap.Put(key, perfLargeValue)
	}},
	{name: "put-ttl", op: func(key string, _ int) error {
		return rpcMap.PutTTL(key, []byte("test"), time.Minute)
	}},
	{name: "get", prefill: true, op: func(key string, _ int) error {
		_, _, err := rpcMap.Get(key)
		return err
	}},
	{name: "remove", prefill: true, op: func(key string, _ int) error {
		_, err := rpcMap.Remove(key)
		return err
	}},
	{name: "has", prefill: true, op: func(key string, _ int) error {
		_, err := rpcMap.ContainsKey(key)
		return err
	}},
	{name: "has-not", op: func(key string, _ int) error {
		_, err := rpcMap.ContainsKey(key + "-missing")
		return err
	}},
	{name: "mixed", prefill: true, op: func(key string, counter int) error {
		var err error
		switch counter % 4 {
		case 0: // put
			err = rpcMap.Put(key, []byte("test"))
		case 1: // get
			_, _, err = rpcMap.Get(key)
		case 2: // remove
			_, err = rpcMap.Remove(key)
		case 3: // has
			_, err = rpcMap.ContainsKey(key)
		}
		return err
	}},
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	perfLargeValue = make([]byte, perfLargeValueSizeKB*1024)

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dGrid members")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, test := range perfTests {
		result := testing.Benchmark(func(b *testing.B) {
			if slices.Contains(perfSkip, test.name) {
				return
			}
			benchmark(b, test)
		})
		results[test.name] = result
		printResult(test.name, result)
	}

	printRequestStats()

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// benchmark runs one test in parallel on the keys of the test
func benchmark(b *testing.B, test perfTest) {
	getKey, iter := getKeys(test.name)

	if test.prefill {
		iter(func(k string) {
			if err := rpcMap.Put(k, []byte("test")); err != nil {
				log.Printf("(%s) - error setting key: %v\n", test.name, err)
			}
		})
	}

	// cleanup
	b.Cleanup(func() {
		iter(func(k string) {
			if _, err := rpcMap.Remove(k); err != nil {
				log.Printf("(%s) - error removing key: %v\n", test.name, err)
			}
		})
	})

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := test.op(getKey(counter), counter); err != nil {
				log.Printf("(%s) - error: %v\n", test.name, err)
			}
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printRequestStats prints the latencies of all requests sent by the transport
func printRequestStats() {
	timer, ok := gometrics.DefaultRegistry.Get("dgrid.rpc.send").(gometrics.Timer)
	if !ok {
		return
	}
	snapshot := timer.Snapshot()
	if snapshot.Count() == 0 {
		return
	}

	failed := int64(0)
	if errors, ok := gometrics.DefaultRegistry.Get("dgrid.rpc.send.errors").(gometrics.Counter); ok {
		failed = errors.Count()
	}

	ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Println()
	fmt.Println("Request latencies:")
	fmt.Printf("  requests=%d, failed=%d\n", snapshot.Count(), failed)
	fmt.Printf("  mean=%s, p50=%s, p95=%s, p99=%s, max=%s\n",
		time.Duration(snapshot.Mean()), time.Duration(ps[0]), time.Duration(ps[1]),
		time.Duration(ps[2]), time.Duration(snapshot.Max()))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results in a stable order
	for _, test := range perfTests {
		result := results[test.name]
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test.name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test.name, err)
		}
	}

	return nil
}
