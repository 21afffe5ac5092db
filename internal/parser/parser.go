package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors" // Standard errors package

	"github.com/mcncl/rnbdview/internal/dumpfile"
	"github.com/mcncl/rnbdview/internal/errors" // Custom errors package
	"github.com/mcncl/rnbdview/internal/models"
)

// MaxNesting bounds how deeply arrays and objects may nest in parsed input.
const MaxNesting = 10000

var errUnexpectedEnd = stderrors.New("unexpected end of JSON input")

// Parse decodes a single JSON value from reader, keeping object members in
// document order. Duplicate object keys keep their first position and take
// the last value.
func Parse(reader io.Reader) (models.Document, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // Keep numbers in their textual form

	tok, err := decoder.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return models.Document{}, classify(err)
	}

	root, err := decodeValue(decoder, tok, 1)
	if err != nil {
		return models.Document{}, classify(err)
	}

	// Anything other than whitespace after the first value is an error.
	_, err = decoder.Token()
	switch {
	case err == nil:
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	case !stderrors.Is(err, io.EOF):
		return models.Document{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
	}

	return models.Document{Root: root}, nil
}

// decodeValue builds a models.Value starting at tok, pulling further tokens
// from decoder for arrays and objects.
func decodeValue(decoder *json.Decoder, tok json.Token, depth int) (models.Value, error) {
	if depth > MaxNesting {
		return nil, fmt.Errorf("nesting deeper than %d levels", MaxNesting)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := models.Object{}
			index := map[string]int{}
			for decoder.More() {
				keyTok, err := next(decoder)
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not a string", keyTok)
				}
				valTok, err := next(decoder)
				if err != nil {
					return nil, err
				}
				value, err := decodeValue(decoder, valTok, depth+1)
				if err != nil {
					return nil, err
				}
				obj.SetIndexed(index, key, value)
			}
			if _, err := next(decoder); err != nil { // closing '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := models.Array{}
			for decoder.More() {
				elemTok, err := next(decoder)
				if err != nil {
					return nil, err
				}
				value, err := decodeValue(decoder, elemTok, depth+1)
				if err != nil {
					return nil, err
				}
				arr = append(arr, value)
			}
			if _, err := next(decoder); err != nil { // closing ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return models.String(t), nil
	case json.Number:
		return models.Number(t), nil
	case bool:
		return models.Bool(t), nil
	case nil:
		return models.Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected json token type: %T", t)
	}
}

// next reads a token that must exist; running out of input is a syntax problem.
func next(decoder *json.Decoder) (json.Token, error) {
	tok, err := decoder.Token()
	if stderrors.Is(err, io.EOF) {
		return nil, errUnexpectedEnd
	}
	return tok, err
}

func classify(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, errUnexpectedEnd) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError(fmt.Sprintf("failed to decode JSON: %v", err), errors.ErrInvalidJSON)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseBytes parses JSON from a byte slice, recording source as its origin.
func ParseBytes(data []byte, source string) (models.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewInputError(fmt.Sprintf("dump from %s is empty", source), errors.ErrEmptyInput)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return models.Document{}, err
	}
	doc.Source = source
	return doc, nil
}

// ParseFile parses JSON from a file path. Compressed dumps are recognised by
// their extension (.gz, .zst, .lz4).
func ParseFile(filePath string) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	file, err := dumpfile.Open(filePath)
	if err != nil {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	doc, err := Parse(file)
	if err != nil {
		return models.Document{}, err
	}
	doc.Source = filePath
	return doc, nil
}
