package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"
)

// SignatureLength is the size of an ed25519 signature in bytes
const SignatureLength = 64

var (
	// ErrNoInstructions is returned when compiling a transaction without instructions
	ErrNoInstructions = errors.New("transaction has no instructions")

	// ErrUnknownSigner is returned when a signer is not a required signer of the message
	ErrUnknownSigner = errors.New("signer is not required by the transaction")

	// ErrTooManyAccounts is returned when a message references more than 256 accounts
	ErrTooManyAccounts = errors.New("too many account keys")
)

// Hash is a 32-byte block hash
type Hash [32]byte

// HashFromBase58 decodes a base-58 block hash
func HashFromBase58(s string) (Hash, error) {
	var h Hash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("invalid hash: expected %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

// Signature is an ed25519 transaction signature
type Signature [SignatureLength]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature slot is still empty
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Signer produces ed25519 signatures for a public key
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) (Signature, error)
}

// AccountMeta describes how an instruction uses an account
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// MessageHeader counts signer and read-only accounts of a message
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into the message account keys
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// Transaction is a signed legacy transaction
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles instructions into a transaction paid for by feePayer
func NewTransaction(instructions []Instruction, recentBlockhash Hash, feePayer PublicKey) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	message, err := compileMessage(instructions, recentBlockhash, feePayer)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Signatures: make([]Signature, message.Header.NumRequiredSignatures),
		Message:    *message,
	}, nil
}

type keyMeta struct {
	key      PublicKey
	signer   bool
	writable bool
	feePayer bool
}

func (m keyMeta) rank() int {
	switch {
	case m.feePayer:
		return 0
	case m.signer && m.writable:
		return 1
	case m.signer:
		return 2
	case m.writable:
		return 3
	default:
		return 4
	}
}

func compileMessage(instructions []Instruction, recentBlockhash Hash, feePayer PublicKey) (*Message, error) {
	metas := []*keyMeta{{key: feePayer, signer: true, writable: true, feePayer: true}}
	index := map[PublicKey]*keyMeta{feePayer: metas[0]}

	add := func(key PublicKey, signer, writable bool) {
		if m, ok := index[key]; ok {
			m.signer = m.signer || signer
			m.writable = m.writable || writable
			return
		}
		m := &keyMeta{key: key, signer: signer, writable: writable}
		index[key] = m
		metas = append(metas, m)
	}

	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc.PublicKey, acc.IsSigner, acc.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	if len(metas) > 256 {
		return nil, ErrTooManyAccounts
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].rank() < metas[j].rank()
	})

	message := &Message{RecentBlockhash: recentBlockhash}
	positions := make(map[PublicKey]uint8, len(metas))
	for i, m := range metas {
		positions[m.key] = uint8(i)
		message.AccountKeys = append(message.AccountKeys, m.key)
		switch {
		case m.signer:
			message.Header.NumRequiredSignatures++
			if !m.writable {
				message.Header.NumReadonlySignedAccounts++
			}
		case !m.writable:
			message.Header.NumReadonlyUnsignedAccounts++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: positions[ix.ProgramID],
			Accounts:       make([]uint8, 0, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for _, acc := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, positions[acc.PublicKey])
		}
		message.Instructions = append(message.Instructions, compiled)
	}

	return message, nil
}

// Serialize encodes the message in the legacy wire format
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)

	buf.Write(EncodeCompactU16(len(m.AccountKeys)))
	for _, key := range m.AccountKeys {
		buf.Write(key[:])
	}

	buf.Write(m.RecentBlockhash[:])

	buf.Write(EncodeCompactU16(len(m.Instructions)))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		buf.Write(EncodeCompactU16(len(ix.Accounts)))
		buf.Write(ix.Accounts)
		buf.Write(EncodeCompactU16(len(ix.Data)))
		buf.Write(ix.Data)
	}

	return buf.Bytes()
}

// FeePayer returns the first account key
func (tx *Transaction) FeePayer() PublicKey {
	return tx.Message.AccountKeys[0]
}

// Sign fills the signature slots of the given signers. Other slots are left untouched.
func (tx *Transaction) Sign(signers ...Signer) error {
	message := tx.Message.Serialize()
	required := int(tx.Message.Header.NumRequiredSignatures)

	for _, signer := range signers {
		slot := -1
		for i := 0; i < required; i++ {
			if tx.Message.AccountKeys[i] == signer.PublicKey() {
				slot = i
				break
			}
		}
		if slot < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownSigner, signer.PublicKey())
		}

		sig, err := signer.Sign(message)
		if err != nil {
			return fmt.Errorf("failed to sign with %s: %w", signer.PublicKey(), err)
		}
		tx.Signatures[slot] = sig
	}

	return nil
}

// Signature returns the fee payer signature, which identifies the transaction
func (tx *Transaction) Signature() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// VerifySignatures checks every signature slot against its account key
func (tx *Transaction) VerifySignatures() bool {
	message := tx.Message.Serialize()
	for i, sig := range tx.Signatures {
		key := tx.Message.AccountKeys[i]
		if !ed25519.Verify(ed25519.PublicKey(key[:]), message, sig[:]) {
			return false
		}
	}
	return true
}

// Serialize encodes the signed transaction in the wire format
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeCompactU16(len(tx.Signatures)))
	for _, sig := range tx.Signatures {
		buf.Write(sig[:])
	}
	buf.Write(tx.Message.Serialize())
	return buf.Bytes()
}

// EncodeCompactU16 encodes n using the shortvec length encoding
func EncodeCompactU16(n int) []byte {
	var out []byte
	rem := uint16(n)
	for {
		elem := byte(rem & 0x7f)
		rem >>= 7
		if rem == 0 {
			out = append(out, elem)
			return out
		}
		out = append(out, elem|0x80)
	}
}
