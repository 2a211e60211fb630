package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	solanarpc "github.com/layer-3/carbx/adapters/solana"
	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

const (
	companyIDLength = 16
	discLength      = 8

	offsetConfig    = discLength
	offsetCompanyID = offsetConfig + 32
	offsetYear      = offsetCompanyID + companyIDLength
	offsetTokenMint = offsetYear + 2
	minAccountSize  = offsetTokenMint + 32
)

var (
	// ErrCompanyIDTooLong is returned when a company id does not fit the 16-byte field
	ErrCompanyIDTooLong = errors.New("company id exceeds 16 bytes")

	// ErrInvalidYear is returned for a vintage year outside the u16 range
	ErrInvalidYear = errors.New("vintage year out of range")

	// ErrAmountPrecision is returned when an amount has more fractional digits than the mint
	ErrAmountPrecision = errors.New("amount has more decimal places than the token")

	registrySeed = []byte("registry")

	vintageRegistryDisc = anchorDiscriminator("account:VintageRegistry")
	burnVintageDisc     = anchorDiscriminator("global:burn_vintage")
)

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte(name))
	return sum[:discLength]
}

// AccountFetcher lists accounts owned by a program
type AccountFetcher interface {
	ProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...solanarpc.MemcmpFilter) ([]solanarpc.ProgramAccount, error)
}

// Program builds and reads vintage registry program data
type Program struct {
	programID solana.PublicKey
	accounts  AccountFetcher
}

// NewProgram creates a registry program helper
func NewProgram(programID solana.PublicKey, accounts AccountFetcher) *Program {
	return &Program{programID: programID, accounts: accounts}
}

var _ ports.RegistryProgram = (*Program)(nil)

// FetchRegistryAccounts returns every vintage registry account, leniently decoded
func (p *Program) FetchRegistryAccounts(ctx context.Context) ([]core.RawRegistryAccount, error) {
	raw, err := p.accounts.ProgramAccounts(ctx, p.programID, solanarpc.MemcmpFilter{Offset: 0, Bytes: vintageRegistryDisc})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registry accounts: %w", err)
	}

	accounts := make([]core.RawRegistryAccount, 0, len(raw))
	for _, item := range raw {
		account := DecodeRegistryAccount(item.Data)
		account.Address = item.Address.String()
		accounts = append(accounts, account)
	}

	logger.Debug("registry accounts fetched", zap.Int("count", len(accounts)))
	return accounts, nil
}

// DecodeRegistryAccount decodes what it can of a registry account; truncated fields are left nil
func DecodeRegistryAccount(data []byte) core.RawRegistryAccount {
	var account core.RawRegistryAccount
	if len(data) < discLength || !bytes.Equal(data[:discLength], vintageRegistryDisc) {
		return account
	}

	if len(data) >= offsetCompanyID+companyIDLength {
		account.CompanyID = append([]byte(nil), data[offsetCompanyID:offsetCompanyID+companyIDLength]...)
	}
	if len(data) >= offsetYear+2 {
		year := int(binary.LittleEndian.Uint16(data[offsetYear:]))
		account.Year = &year
	}
	if len(data) >= minAccountSize {
		mint, err := solana.PublicKeyFromBytes(data[offsetTokenMint : offsetTokenMint+32])
		if err == nil {
			s := mint.String()
			account.TokenMint = &s
		}
	}
	return account
}

// EncodeCompanyID packs a company id into the fixed 16-byte field, zero padded
func EncodeCompanyID(companyID string) ([]byte, error) {
	if len(companyID) > companyIDLength {
		return nil, ErrCompanyIDTooLong
	}
	out := make([]byte, companyIDLength)
	copy(out, companyID)
	return out, nil
}

// DecodeCompanyID decodes a fixed 16-byte company id field, dropping NUL bytes
func (p *Program) DecodeCompanyID(raw []byte) string {
	return strings.ReplaceAll(string(raw), "\x00", "")
}

// FindRegistryAddress derives the registry account for a company and vintage year
func (p *Program) FindRegistryAddress(config solana.PublicKey, companyID string, year int) (solana.PublicKey, error) {
	company, err := EncodeCompanyID(companyID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if year < 0 || year > 0xFFFF {
		return solana.PublicKey{}, ErrInvalidYear
	}
	yearBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(yearBytes, uint16(year))

	address, _, err := solana.FindProgramAddress([][]byte{registrySeed, config.Bytes(), company, yearBytes}, p.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive registry address: %w", err)
	}
	return address, nil
}

// BuildBurn builds the burn_vintage instruction moving tokens out of the user's account
func (p *Program) BuildBurn(_ context.Context, accounts ports.BurnAccounts, args ports.BurnArgs) (*ports.BurnResult, error) {
	if !args.Amount.IsPositive() {
		return nil, fmt.Errorf("burn amount must be positive, got %s", args.Amount)
	}
	scaled := args.Amount.Shift(int32(args.Decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrAmountPrecision
	}
	if !scaled.BigInt().IsUint64() {
		return nil, fmt.Errorf("burn amount %s overflows u64", args.Amount)
	}

	userATA, err := solana.FindAssociatedTokenAddress(accounts.User, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user token account: %w", err)
	}

	data := make([]byte, 0, discLength+8+4+len(args.PuroUserUUID))
	data = append(data, burnVintageDisc...)
	data = binary.LittleEndian.AppendUint64(data, scaled.BigInt().Uint64())
	data = binary.LittleEndian.AppendUint32(data, uint32(len(args.PuroUserUUID)))
	data = append(data, args.PuroUserUUID...)

	ix := solana.Instruction{
		ProgramID: p.programID,
		Accounts: []solana.AccountMeta{
			{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
			{PublicKey: accounts.Config},
			{PublicKey: accounts.Registry, IsWritable: true},
			{PublicKey: accounts.Mint, IsWritable: true},
			{PublicKey: userATA, IsWritable: true},
			{PublicKey: solana.TokenProgramID},
		},
		Data: data,
	}

	return &ports.BurnResult{Instructions: []solana.Instruction{ix}}, nil
}
