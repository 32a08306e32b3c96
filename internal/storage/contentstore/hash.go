package contentstore

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Kind separates the hash domains of stored payloads so an image and a record
// with identical bytes never share an id.
type Kind uint8

const (
	KindAsset  Kind = 1
	KindRecord Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Domain keys are the ASCII domain name zero-padded to 32 bytes. Changing
// them invalidates every stored id.
var domainKeys = map[Kind][32]byte{
	KindAsset:  paddedKey("pixelmint.blob.asset"),
	KindRecord: paddedKey("pixelmint.blob.record"),
}

func paddedKey(name string) [32]byte {
	var key [32]byte
	copy(key[:], name)
	return key
}

// ID returns the hex BLAKE3 keyed hash of data in the domain of kind.
func ID(kind Kind, data []byte) (string, error) {
	key, ok := domainKeys[kind]
	if !ok {
		return "", fmt.Errorf("no hash domain for kind %s", kind)
	}
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		return "", fmt.Errorf("blake3 keyed init: %w", err)
	}
	_, _ = hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func validID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
