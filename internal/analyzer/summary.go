package analyzer

import (
	"github.com/klauspost/compress/zstd"

	enginerr "verdict/internal/errors"
)

// CompressSummary compresses a context summary for transport. Summaries
// repeat paths and labels heavily, so zstd at default level shrinks them
// well below the backend's payload limits.
func CompressSummary(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, enginerr.New(enginerr.InternalError, "failed to create zstd encoder", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// DecompressSummary reverses CompressSummary
func DecompressSummary(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, enginerr.New(enginerr.InternalError, "failed to create zstd decoder", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, enginerr.New(enginerr.AnalyzerFailure, "failed to decompress summary", err)
	}
	return out, nil
}
