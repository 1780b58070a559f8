package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-playground/validator/v10"
)

// wasmMagic opens every binary module.
// https://webassembly.github.io/spec/core/binary/modules.html#binary-module
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}

var ErrNotWASM = errors.New("not a WebAssembly module")

// CheckWASM reports whether path is a WebAssembly module, transparently
// decompressing a ".wasm.br" sidecar.
func CheckWASM(path string) error {
	if !strings.HasSuffix(path, ".wasm") && !strings.HasSuffix(path, ".wasm.br") {
		return fmt.Errorf("%s: unexpected extension: %w", path, ErrNotWASM)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".br") {
		reader = brotli.NewReader(file)
	}

	header := make([]byte, len(wasmMagic))
	if _, err := io.ReadFull(reader, header); err != nil {
		return fmt.Errorf("%s: %w", path, ErrNotWASM)
	}
	if !bytes.Equal(header, wasmMagic) {
		return fmt.Errorf("%s: bad magic %x: %w", path, header, ErrNotWASM)
	}
	return nil
}

func IsValidWASM(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		panic(fmt.Sprintf("input field name is not a string: %s", fl.FieldName()))
	}
	return CheckWASM(field.String()) == nil
}
