package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/ed25519"

	"pixelmint/internal/identity"
	"pixelmint/internal/services"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ledger: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("ledger: CBOR decoder initialization failed: " + err.Error())
	}
}

// Creator is a royalty recipient named in a registration.
type Creator struct {
	Address string `cbor:"address" json:"address"`
	Share   int    `cbor:"share" json:"share"`
}

// Registration is the statement an owner signs to register a record.
type Registration struct {
	RecordLocator        string    `cbor:"record"`
	Name                 string    `cbor:"name"`
	Symbol               string    `cbor:"symbol"`
	SellerFeeBasisPoints int       `cbor:"seller_fee_bps"`
	Creators             []Creator `cbor:"creators"`
	Mutable              bool      `cbor:"mutable"`
	Owner                string    `cbor:"owner"`
	Nonce                string    `cbor:"nonce"`
}

// Submission is a signed registration ready for a ledger.
type Submission struct {
	Payload   []byte `json:"payload"`
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"public_key"`
}

// Receipt acknowledges an accepted registration.
type Receipt struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Validate checks the fields every ledger requires.
func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.RecordLocator) == "":
		return services.Wrap(services.ErrValidation, "ledger", "validate", "record locator is required", nil)
	case strings.TrimSpace(r.Name) == "":
		return services.Wrap(services.ErrValidation, "ledger", "validate", "name is required", nil)
	case strings.TrimSpace(r.Nonce) == "":
		return services.Wrap(services.ErrValidation, "ledger", "validate", "nonce is required", nil)
	case r.SellerFeeBasisPoints < 0 || r.SellerFeeBasisPoints > 10000:
		return services.Wrap(services.ErrValidation, "ledger", "validate", "seller fee out of range", nil)
	}
	if len(r.Creators) > 0 {
		total := 0
		for _, c := range r.Creators {
			total += c.Share
		}
		if total != 100 {
			return services.Wrap(services.ErrValidation, "ledger", "validate",
				fmt.Sprintf("creator shares sum to %d, want 100", total), nil)
		}
	}
	return nil
}

// EncodePayload returns the canonical signing bytes of r.
func EncodePayload(r Registration) ([]byte, error) {
	return encMode.Marshal(r)
}

// DecodePayload parses signing bytes produced by EncodePayload.
func DecodePayload(payload []byte) (Registration, error) {
	var r Registration
	if err := decMode.Unmarshal(payload, &r); err != nil {
		return Registration{}, fmt.Errorf("decode registration: %w", err)
	}
	return r, nil
}

// Sign stamps r with the signer's address, encodes it, and asks the signer to
// sign. A user refusal surfaces as identity.ErrRejected.
func Sign(ctx context.Context, r Registration, signer identity.Signer) (Submission, error) {
	if signer == nil {
		return Submission{}, identity.ErrNoIdentity
	}
	r.Owner = signer.Address()
	if err := r.Validate(); err != nil {
		return Submission{}, err
	}
	payload, err := EncodePayload(r)
	if err != nil {
		return Submission{}, fmt.Errorf("encode registration: %w", err)
	}
	sig, err := signer.Sign(ctx, identity.Intent{Name: r.Name, RecordLocator: r.RecordLocator}, payload)
	if err != nil {
		return Submission{}, err
	}
	return Submission{Payload: payload, Signature: sig, PublicKey: signer.PublicKey()}, nil
}

// ErrBadSignature marks a submission whose signature or owner does not verify.
var ErrBadSignature = errors.New("registration signature invalid")

// Verify checks a submission's signature and owner binding and returns the decoded registration.
func Verify(sub Submission) (Registration, error) {
	if len(sub.PublicKey) != ed25519.PublicKeySize {
		return Registration{}, fmt.Errorf("%w: public key has %d bytes", ErrBadSignature, len(sub.PublicKey))
	}
	if len(sub.Signature) != ed25519.SignatureSize {
		return Registration{}, fmt.Errorf("%w: signature has %d bytes", ErrBadSignature, len(sub.Signature))
	}
	if !ed25519.Verify(ed25519.PublicKey(sub.PublicKey), sub.Payload, sub.Signature) {
		return Registration{}, ErrBadSignature
	}
	r, err := DecodePayload(sub.Payload)
	if err != nil {
		return Registration{}, services.Wrap(services.ErrValidation, "ledger", "verify", "malformed payload", err)
	}
	if r.Owner != identity.Address(ed25519.PublicKey(sub.PublicKey)) {
		return Registration{}, fmt.Errorf("%w: owner %s does not match signing key", ErrBadSignature, r.Owner)
	}
	if err := r.Validate(); err != nil {
		return Registration{}, err
	}
	return r, nil
}

// RegistrationID derives the ledger id of a submission from its signed bytes.
func RegistrationID(sub Submission) string {
	hasher := blake3.New()
	_, _ = hasher.Write(sub.Payload)
	_, _ = hasher.Write(sub.Signature)
	return base58.Encode(hasher.Sum(nil))
}
