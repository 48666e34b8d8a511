package accountsvc

import "github.com/fxamacker/cbor/v2"

func cborMarshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func cborUnmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
