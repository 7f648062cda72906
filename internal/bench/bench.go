// Package bench drives insert and range-scan workloads against the index and
// against pebble as a reference engine, recording per-batch latencies to CSV
// and a line plot.
package bench

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/pebble"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"ridx"
	"ridx/internal/base"
	"ridx/internal/bufmgr"
	"ridx/internal/heap"
)

const batchSize = 10_000

// Result is one measured workload.
type Result struct {
	Engine    string
	Operation string
	N         int
	NsPerOp   int64
}

type series struct {
	name   string
	points plotter.XYs
}

// Run builds an n-record relation under dir, loads it into the index and
// into pebble, scans both, and writes results.csv and latency.png to dir.
func Run(dir string, n int) ([]Result, error) {
	if n < batchSize {
		n = batchSize
	}

	var results []Result
	var lines []series

	idxInsert, idxScan, err := runIndex(dir, n)
	if err != nil {
		return nil, fmt.Errorf("index workload: %w", err)
	}
	results = append(results, summarize("ridx", "insert", idxInsert)...)
	results = append(results, idxScan)
	lines = append(lines, series{name: "ridx insert", points: toXYs(idxInsert)})

	pebInsert, pebScan, err := runPebble(dir, n)
	if err != nil {
		return nil, fmt.Errorf("pebble workload: %w", err)
	}
	results = append(results, summarize("pebble", "insert", pebInsert)...)
	results = append(results, pebScan)
	lines = append(lines, series{name: "pebble insert", points: toXYs(pebInsert)})

	if err := writeCSV(filepath.Join(dir, "results.csv"), results); err != nil {
		return nil, err
	}
	if err := writePlot(filepath.Join(dir, "latency.png"), lines); err != nil {
		return nil, err
	}
	return results, nil
}

type batch struct {
	upto    int
	nsPerOp int64
}

// runIndex inserts n sequential keys through InsertEntry and then scans the
// full key range once.
func runIndex(dir string, n int) ([]batch, Result, error) {
	relation := filepath.Join(dir, "bench_relation")
	rel, err := heap.Open(relation, true)
	if err != nil {
		return nil, Result{}, err
	}

	rids := make([]base.RecordID, 0, n)
	rec := make([]byte, 16)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(rec, uint32(i))
		rid, err := rel.InsertRecord(rec)
		if err != nil {
			rel.Close()
			return nil, Result{}, err
		}
		rids = append(rids, rid)
	}
	if err := rel.Close(); err != nil {
		return nil, Result{}, err
	}

	// Open over a relation path with no heap file so the index starts empty
	// and every insert below is measured.
	bm := bufmgr.New(bufmgr.DefaultPoolSize)
	idx, _, err := ridx.Open(filepath.Join(dir, "bench_index"), 0, ridx.Integer, bm)
	if err != nil {
		return nil, Result{}, err
	}
	defer idx.Close()

	var batches []batch
	for done := 0; done < n; done += batchSize {
		start := time.Now()
		for i := done; i < done+batchSize && i < n; i++ {
			if err := idx.InsertEntry(int32(i), rids[i]); err != nil {
				return nil, Result{}, err
			}
		}
		count := min(batchSize, n-done)
		batches = append(batches, batch{
			upto:    done + count,
			nsPerOp: time.Since(start).Nanoseconds() / int64(count),
		})
	}

	start := time.Now()
	if err := idx.StartScan(0, ridx.GTE, int32(n), ridx.LTE); err != nil {
		return nil, Result{}, err
	}
	scanned := 0
	for {
		if _, err := idx.ScanNext(); err != nil {
			break
		}
		scanned++
	}
	if err := idx.EndScan(); err != nil {
		return nil, Result{}, err
	}

	scan := Result{
		Engine:    "ridx",
		Operation: "scan",
		N:         scanned,
		NsPerOp:   time.Since(start).Nanoseconds() / int64(max(scanned, 1)),
	}
	return batches, scan, nil
}

// runPebble performs the same sequential load and range scan against pebble.
func runPebble(dir string, n int) ([]batch, Result, error) {
	db, err := pebble.Open(filepath.Join(dir, "bench_pebble"), &pebble.Options{})
	if err != nil {
		return nil, Result{}, err
	}
	defer db.Close()

	var batches []batch
	key := make([]byte, 4)
	val := make([]byte, 8)
	for done := 0; done < n; done += batchSize {
		start := time.Now()
		for i := done; i < done+batchSize && i < n; i++ {
			binary.BigEndian.PutUint32(key, uint32(i))
			binary.LittleEndian.PutUint64(val, uint64(i))
			if err := db.Set(key, val, pebble.NoSync); err != nil {
				return nil, Result{}, err
			}
		}
		count := min(batchSize, n-done)
		batches = append(batches, batch{
			upto:    done + count,
			nsPerOp: time.Since(start).Nanoseconds() / int64(count),
		})
	}

	lower := make([]byte, 4)
	upper := make([]byte, 4)
	binary.BigEndian.PutUint32(upper, uint32(n))

	start := time.Now()
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, Result{}, err
	}
	scanned := 0
	for iter.First(); iter.Valid(); iter.Next() {
		scanned++
	}
	if err := iter.Close(); err != nil {
		return nil, Result{}, err
	}

	scan := Result{
		Engine:    "pebble",
		Operation: "scan",
		N:         scanned,
		NsPerOp:   time.Since(start).Nanoseconds() / int64(max(scanned, 1)),
	}
	return batches, scan, nil
}

func summarize(engine, op string, batches []batch) []Result {
	results := make([]Result, 0, len(batches))
	for _, b := range batches {
		results = append(results, Result{
			Engine:    engine,
			Operation: op,
			N:         b.upto,
			NsPerOp:   b.nsPerOp,
		})
	}
	return results
}

func toXYs(batches []batch) plotter.XYs {
	xys := make(plotter.XYs, len(batches))
	for i, b := range batches {
		xys[i].X = float64(b.upto)
		xys[i].Y = float64(b.nsPerOp)
	}
	return xys
}

func writeCSV(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Engine", "Operation", "N", "LatencyNs"})
	for _, r := range results {
		w.Write([]string{
			r.Engine,
			r.Operation,
			strconv.Itoa(r.N),
			strconv.FormatInt(r.NsPerOp, 10),
		})
	}
	w.Flush()
	return w.Error()
}

func writePlot(path string, lines []series) error {
	p := plot.New()
	p.Title.Text = "Insert latency"
	p.X.Label.Text = "keys inserted"
	p.Y.Label.Text = "ns/op"

	for i, s := range lines {
		line, err := plotter.NewLine(s.points)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
