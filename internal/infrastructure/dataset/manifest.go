package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// ManifestScanner лениво читает пары из манифеста.
// Для повторного прохода файл открывается заново.
type ManifestScanner struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
	pair    entity.Pair
	err     error
}

// OpenManifest открывает манифест для чтения
func OpenManifest(path string) (*ManifestScanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return &ManifestScanner{
		file:    f,
		scanner: bufio.NewScanner(f),
	}, nil
}

// Next переходит к следующей непустой строке
func (m *ManifestScanner) Next() bool {
	if m.err != nil {
		return false
	}
	for m.scanner.Scan() {
		m.line++
		pair, ok, err := ParseLine(m.scanner.Text(), m.line)
		if err != nil {
			m.err = err
			return false
		}
		if !ok {
			continue
		}
		m.pair = pair
		return true
	}
	if err := m.scanner.Err(); err != nil {
		m.err = fmt.Errorf("read manifest: %w", err)
	}
	return false
}

// Pair текущая пара
func (m *ManifestScanner) Pair() entity.Pair {
	return m.pair
}

// Err первая ошибка чтения или разбора
func (m *ManifestScanner) Err() error {
	return m.err
}

func (m *ManifestScanner) Close() error {
	return m.file.Close()
}

// ParseLine разбирает строку манифеста. Пустая строка даёт ok=false.
func ParseLine(line string, lineNo int) (entity.Pair, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return entity.Pair{}, false, nil
	}
	if len(fields) != 2 {
		return entity.Pair{}, false, fmt.Errorf("%w: line %d: expected 2 fields, got %d", entity.ErrMalformedLine, lineNo, len(fields))
	}
	return entity.Pair{Line: lineNo, Image: fields[0], Garment: fields[1]}, true, nil
}

// ReadManifest читает манифест целиком
func ReadManifest(path string) ([]entity.Pair, error) {
	m, err := OpenManifest(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	var pairs []entity.Pair
	for m.Next() {
		pairs = append(pairs, m.Pair())
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// FileManifestReader реализация port.ManifestReader поверх файловой системы
type FileManifestReader struct{}

func (FileManifestReader) Read(path string) ([]entity.Pair, error) {
	return ReadManifest(path)
}

var _ port.ManifestReader = FileManifestReader{}
