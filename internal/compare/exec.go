package compare

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/palmgate/internal/raster"
)

// File names used in the work directory.
const (
	ReferenceFile     = "etalon.bmp"
	CandidateFile     = "hand.bmp"
	DefaultResultFile = "DissimilarityMeasure.txt"

	referenceSkeleton = "out1.skl"
	candidateSkeleton = "out2.skl"
	matchDepth        = "4"
)

// DefaultTimeoutMs bounds each spawned tool.
const DefaultTimeoutMs = 30000

// ExecGateway runs a comparator toolkit as child processes in a work
// directory. Calls are serialized since the tools share file names.
type ExecGateway struct {
	toolkit   *Toolkit
	workDir   string
	timeoutMs int
	mu        sync.Mutex
}

// NewExecGateway creates a gateway running tk inside workDir.
func NewExecGateway(tk *Toolkit, workDir string, timeoutMs int) *ExecGateway {
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	return &ExecGateway{toolkit: tk, workDir: workDir, timeoutMs: timeoutMs}
}

// Compare writes both silhouettes, extracts their skeletons, matches them
// and returns the score read back from the result file.
func (g *ExecGateway) Compare(ctx context.Context, reference, candidate raster.Mask, p Params) (float64, error) {
	if reference.Empty() || candidate.Empty() {
		return 0, ErrEmptyMask
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.MkdirAll(g.workDir, 0755); err != nil {
		return 0, fmt.Errorf("create work dir: %w", err)
	}
	if err := g.clean(); err != nil {
		return 0, err
	}

	if err := WriteBMP(filepath.Join(g.workDir, ReferenceFile), reference); err != nil {
		return 0, fmt.Errorf("write reference: %w", err)
	}
	if err := WriteBMP(filepath.Join(g.workDir, CandidateFile), candidate); err != nil {
		return 0, fmt.Errorf("write candidate: %w", err)
	}

	reg := strconv.Itoa(p.Regularization)
	if err := g.run(ctx, g.toolkit.Skeleton, "-p", reg, ReferenceFile, referenceSkeleton); err != nil {
		return 0, err
	}
	if err := g.run(ctx, g.toolkit.Skeleton, "-p", reg, CandidateFile, candidateSkeleton); err != nil {
		return 0, err
	}

	approx := strconv.FormatFloat(p.Approximation, 'g', -1, 64)
	penalty := strconv.FormatFloat(p.MergePenalty, 'g', -1, 64)
	if err := g.run(ctx, g.toolkit.Comparator, approx, approx, matchDepth, referenceSkeleton, candidateSkeleton, penalty); err != nil {
		return 0, err
	}

	return g.readResult()
}

// clean removes skeleton, sequence and result files left by a previous call.
func (g *ExecGateway) clean() error {
	for _, pattern := range []string{"*.skl", "*.seq"} {
		matches, err := filepath.Glob(filepath.Join(g.workDir, pattern))
		if err != nil {
			return err
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stale %s: %w", m, err)
			}
		}
	}
	err := os.Remove(filepath.Join(g.workDir, g.resultFile()))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale result: %w", err)
	}
	return nil
}

func (g *ExecGateway) run(parent context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(parent, time.Duration(g.timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = g.workDir
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timeout after %dms", filepath.Base(name), g.timeoutMs)
	}
	if err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return fmt.Errorf("%s failed: %w, stderr: %s", filepath.Base(name), err, s)
		}
		return fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return nil
}

func (g *ExecGateway) readResult() (float64, error) {
	path := filepath.Join(g.workDir, g.resultFile())
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", g.resultFile(), err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%s: %w", g.resultFile(), ErrEmptyResult)
	}
	score, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", g.resultFile(), err)
	}
	return score, nil
}

func (g *ExecGateway) resultFile() string {
	if g.toolkit.Manifest.Result != "" {
		return g.toolkit.Manifest.Result
	}
	return DefaultResultFile
}
