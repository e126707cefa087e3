package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, extractor)
	require.NotNil(t, extractor.parser)
}

func TestExtractFromBytesRejectsInvalidPDF(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	_, err = extractor.ExtractFromBytes(context.Background(), []byte("not a pdf"), "resume.pdf")
	assert.Error(t, err)
}

func TestExtractFromFileMissingFile(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background())
	require.NoError(t, err)

	_, err = extractor.ExtractFromFile(context.Background(), "testdata/does-not-exist.pdf")
	assert.Error(t, err)
}
