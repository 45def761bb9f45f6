package archive

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/meigma/hashlist/internal/doc"
)

// encMode writes packed documents with Core Deterministic Encoding so the
// same list always produces identical bytes.
var encMode cbor.EncMode

// decMode reads packed documents into generic values.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("archive: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Hash lists only use string keys.
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: 1 << 26,
		MaxMapPairs:      1 << 16,
		MaxNestedLevels:  64,
	}.DecMode()
	if err != nil {
		panic("archive: CBOR decoder initialization failed: " + err.Error())
	}
}

// packedDocument is the CBOR layout of a packed archive.
type packedDocument struct {
	FormatVersion uint32         `cbor:"formatVersion"`
	Version       uint32         `cbor:"version"`
	Entries       []packedRecord `cbor:"entries"`
}

type packedRecord struct {
	Hash         string `cbor:"hash"`
	ResourceType string `cbor:"resourceType"`
	Path         string `cbor:"path,omitempty"`
	Hint         string `cbor:"hint,omitempty"`
	GameFlags    uint8  `cbor:"gameFlags,omitempty"`
	Tag          uint8  `cbor:"tag,omitempty"`
}

func marshalPacked(d *packedDocument) ([]byte, error) {
	body, err := encMode.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode cbor: %w", err)
	}
	return append(bytes.Clone(cborMagic), body...), nil
}

// decodeCBOR parses a self-described CBOR document into a doc tree.
func decodeCBOR(data []byte) (doc.Value, error) {
	var raw any
	if err := decMode.Unmarshal(bytes.TrimPrefix(data, cborMagic), &raw); err != nil {
		return nil, err
	}
	return fromCBOR(raw, "$")
}

func fromCBOR(v any, path string) (doc.Value, error) {
	switch x := v.(type) {
	case nil:
		return doc.Null{}, nil
	case bool:
		return doc.Bool(x), nil
	case uint64:
		if x <= math.MaxInt64 {
			return doc.Int(int64(x)), nil
		}
		return doc.Uint(x), nil
	case int64:
		return doc.Int(x), nil
	case float64:
		return doc.Float(x), nil
	case string:
		return doc.String(x), nil
	case []byte:
		return doc.Bytes(x), nil
	case []any:
		seq := make(doc.Seq, len(x))
		for i, item := range x {
			val, err := fromCBOR(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			seq[i] = val
		}
		return seq, nil
	case map[string]any:
		// Go maps are unordered; sort keys so the tree is deterministic.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := make(doc.Map, 0, len(x))
		for _, k := range keys {
			val, err := fromCBOR(x[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			m = append(m, doc.Pair{Key: k, Value: val})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: unsupported CBOR item %T", path, v)
	}
}
