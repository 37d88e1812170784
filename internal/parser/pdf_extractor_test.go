package parser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromBytesRejectsInvalidPDF(t *testing.T) {
	e := NewPDFTextExtractor()

	_, err := e.ExtractFromBytes(context.Background(), []byte("this is not a pdf"))
	assert.Error(t, err)
}

func TestExtractFromBytesEnforcesMaxFileSize(t *testing.T) {
	e := NewPDFTextExtractor(WithMaxFileSize(8))

	_, err := e.ExtractFromBytes(context.Background(), []byte("way more than eight bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "过大")
}

func TestExtractFromFileMissingFile(t *testing.T) {
	e := NewPDFTextExtractor()

	_, err := e.ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

// brokenReader 第一次读取就失败的Reader
type brokenReader struct{}

func (brokenReader) Read(p []byte) (int, error) {
	return 0, errors.New("读取中断")
}

func TestExtractFromReaderPropagatesReadError(t *testing.T) {
	e := NewPDFTextExtractor()

	_, err := e.ExtractFromReader(context.Background(), brokenReader{})
	assert.Error(t, err)
}
