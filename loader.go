package buckets

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MatrixFormat is the layout of a matrix CSV file.
type MatrixFormat string

const (
	MatrixAuto  MatrixFormat = ""      // detected from the content
	MatrixGrid  MatrixFormat = "grid"  // symbol × symbol table
	MatrixPairs MatrixFormat = "pairs" // pair list exported by the trading platform
)

// ParseMatrixFormat validates a format name, the empty string is MatrixAuto.
func ParseMatrixFormat(s string) (MatrixFormat, error) {
	switch f := MatrixFormat(strings.ToLower(s)); f {
	case MatrixAuto, MatrixGrid, MatrixPairs:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown matrix format %q (want grid or pairs)", ErrConfig, s)
	}
}

// SniffMatrixFormat tells a pair list (it has a "pair1,pair2" header line)
// from a grid.
func SniffMatrixFormat(data []byte) MatrixFormat {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.ToLower(strings.ReplaceAll(sc.Text(), " ", ""))
		if strings.HasPrefix(line, "pair1,pair2") {
			return MatrixPairs
		}
	}
	return MatrixGrid
}

// LoadMatrix reads a matrix file in the given format, pairs configures the
// pair list decoding.
func LoadMatrix(path string, format MatrixFormat, pairs PairListOptions) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open matrix file %q: %w", path, err)
	}
	if format == MatrixAuto {
		format = SniffMatrixFormat(data)
	}
	var m *Matrix
	switch format {
	case MatrixPairs:
		m, err = DecodePairs(bytes.NewReader(data), pairs)
	default:
		m, err = DecodeMatrix(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode matrix file %q: %w", path, err)
	}
	return m, nil
}

// LoadAssignment reads a manual assignment file, JSON or YAML according to its
// extension.
func LoadAssignment(path, selector string) (Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open assignment file %q: %w", path, err)
	}
	defer f.Close()

	a, err := DecodeAssignment(f, FormatFromPath(path), selector)
	if err != nil {
		return nil, fmt.Errorf("could not decode assignment file %q: %w", path, err)
	}
	return a, nil
}

// LoadPrices reads a close price file.
func LoadPrices(path string) (*Prices, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open price file %q: %w", path, err)
	}
	defer f.Close()

	p, err := DecodePrices(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode price file %q: %w", path, err)
	}
	return p, nil
}

// ReportPath returns the path of the report of a run started at now: a
// timestamped markdown file beside the matrix file.
func ReportPath(matrixPath string, now time.Time) string {
	name := fmt.Sprintf("buckets_report_%s.md", now.Format("20060102_150405"))
	return filepath.Join(filepath.Dir(matrixPath), name)
}

// SaveFile writes a report produced by write to path, creating the
// directories as needed.
func SaveFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %q: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error opening %q for writing: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
