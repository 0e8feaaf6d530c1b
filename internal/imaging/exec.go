package imaging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/tools"
	"github.com/rs/zerolog/log"
)

// Argument placeholders substituted per call.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// ExecDecoder runs an external decoder process. Every call works in its own
// scratch directory, removed before Decode returns. The process must write
// raw 8-bit samples to the output path.
type ExecDecoder struct {
	Command    string
	Args       []string
	InputName  string
	OutputName string
	ScratchDir string
	Runner     tools.CommandRunner
}

// NewWSQDecoder runs the NBIS dwsq tool, which writes <input>.raw next to its input.
func NewWSQDecoder(command, scratchDir string) *ExecDecoder {
	if command == "" {
		command = "dwsq"
	}
	return &ExecDecoder{
		Command:    command,
		Args:       []string{"raw", InputPlaceholder, "-r"},
		InputName:  "image.wsq",
		OutputName: "image.raw",
		ScratchDir: scratchDir,
	}
}

// NewJPEG2000Decoder runs OpenJPEG's opj_decompress.
func NewJPEG2000Decoder(command, scratchDir string) *ExecDecoder {
	if command == "" {
		command = "opj_decompress"
	}
	return &ExecDecoder{
		Command:    command,
		Args:       []string{"-i", InputPlaceholder, "-o", OutputPlaceholder},
		InputName:  "image.jp2",
		OutputName: "image.raw",
		ScratchDir: scratchDir,
	}
}

// Available reports whether the command resolves on PATH.
func (d *ExecDecoder) Available() bool {
	_, ok := tools.Resolve(d.Command)
	return ok
}

func (d *ExecDecoder) runner() tools.CommandRunner {
	if d.Runner != nil {
		return d.Runner
	}
	return tools.ExecRunner{}
}

func (d *ExecDecoder) Decode(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
	if dims.Width <= 0 || dims.Height <= 0 {
		return record.Raster{}, fmt.Errorf("%w: invalid geometry %dx%d", ErrCorruptPayload, dims.Width, dims.Height)
	}
	dir, err := os.MkdirTemp(d.ScratchDir, "eftview-decode-*")
	if err != nil {
		return record.Raster{}, fmt.Errorf("%w: scratch dir: %v", ErrDecoderFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("imaging.ExecDecoder scratch cleanup failed")
		}
	}()

	input := filepath.Join(dir, d.InputName)
	output := filepath.Join(dir, d.OutputName)
	if err := os.WriteFile(input, payload, 0o600); err != nil {
		return record.Raster{}, fmt.Errorf("%w: write input: %v", ErrDecoderFailed, err)
	}

	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, input)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, output)
	}

	log.Debug().Str("command", d.Command).Strs("args", args).Msg("imaging.ExecDecoder run")
	_, stderr, code, err := d.runner().Run(ctx, d.Command, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return record.Raster{}, fmt.Errorf("%w: %w", ErrDecodeTimeout, ctxErr)
	}
	if code == tools.ExitNotFound {
		return record.Raster{}, fmt.Errorf("%w: %s: %v", ErrDecoderUnavailable, d.Command, err)
	}
	if err != nil || code != 0 {
		return record.Raster{}, fmt.Errorf("%w: %s exited %d: %s", ErrDecoderFailed, d.Command, code,
			strings.TrimSpace(string(stderr)))
	}

	pixels, err := os.ReadFile(output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record.Raster{}, fmt.Errorf("%w: %s produced no output", ErrDecoderFailed, d.Command)
		}
		return record.Raster{}, fmt.Errorf("%w: read output: %v", ErrDecoderFailed, err)
	}
	if want := dims.Width * dims.Height; len(pixels) != want {
		return record.Raster{}, fmt.Errorf("%w: decoded %d bytes for %dx%d, want %d",
			ErrCorruptPayload, len(pixels), dims.Width, dims.Height, want)
	}
	return record.Raster{Width: dims.Width, Height: dims.Height, Depth: 8, Pixels: pixels}, nil
}
