// Package marginfi is a client for the marginfi lending protocol: snapshot
// fetching, local risk computation, instruction building, and flash-loan
// composition.
package marginfi

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/0dotxyz/marginfi-go/core"
	"github.com/0dotxyz/marginfi-go/crank"
	"github.com/0dotxyz/marginfi-go/flashloan"
	"github.com/0dotxyz/marginfi-go/ix"
	"github.com/0dotxyz/marginfi-go/jupiter"
)

// Client is an immutable snapshot bundle: the deployment config plus the
// bank, price, and mint maps every computation takes as input. It is never
// mutated in place; Refresh returns a new bundle and the old one stays
// valid for in-flight work.
type Client struct {
	Config Config

	Banks  core.BankMap
	Prices core.PriceMap
	Mints  core.MintMap

	LookupTables []addresslookuptable.KeyedAddressLookupTable

	connection *rpc.Client
	clk        clock.Clock
	log        core.Log
}

type ClientOption func(*Client)

func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) { c.clk = clk }
}

func WithLog(log core.Log) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient builds an empty bundle around a connection. Call Refresh to
// populate the maps.
func NewClient(connection *rpc.Client, config Config, opts ...ClientOption) *Client {
	c := &Client{
		Config:     config,
		Banks:      core.BankMap{},
		Prices:     core.PriceMap{},
		Mints:      core.MintMap{},
		connection: connection,
		clk:        clock.New(),
		log:        core.NopLog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches the group's banks, their mints, and the configured lookup
// tables, returning a new bundle. Prices are not fetched here; callers
// attach a price snapshot via WithPrices since price sourcing is
// deployment-specific.
func (c *Client) Refresh(ctx context.Context) (*Client, error) {
	banks, err := c.fetchGroupBanks(ctx)
	if err != nil {
		return nil, err
	}
	mints, err := c.fetchMints(ctx, banks)
	if err != nil {
		return nil, err
	}
	tables, err := c.fetchLookupTables(ctx)
	if err != nil {
		return nil, err
	}

	next := *c
	next.Banks = banks
	next.Mints = mints
	next.LookupTables = tables
	return &next, nil
}

// WithPrices attaches a price snapshot, returning a new bundle.
func (c *Client) WithPrices(prices core.PriceMap) *Client {
	next := *c
	next.Prices = prices
	return &next
}

// FetchAccount fetches and decodes one marginfi account.
func (c *Client) FetchAccount(ctx context.Context, address solana.PublicKey) (*core.MarginfiAccount, error) {
	info, err := c.connection.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch account %s", address)
	}
	if info == nil || info.Value == nil {
		return nil, core.NewBankNotFound(address.String())
	}
	return core.DecodeMarginfiAccount(address, info.Value.Data.GetBinary())
}

// Builder returns an instruction builder bound to this snapshot and the
// given account.
func (c *Client) Builder(account *core.MarginfiAccount) *ix.Builder {
	return &ix.Builder{
		ProgramID: c.Config.ProgramID,
		Group:     c.Config.GroupAddress,
		Account:   account,
		Banks:     c.Banks,
		Mints:     c.Mints,
	}
}

// Engine returns a risk engine over this snapshot for the given account.
func (c *Client) Engine(account *core.MarginfiAccount) (*core.RiskEngine, error) {
	return core.NewRiskEngine(account, c.Banks, c.Prices)
}

// Composer returns a flash-loan composer bound to this snapshot and the
// given account. The swap provider is supplied by the caller; an optional
// crank client enables hoisted oracle update transactions.
func (c *Client) Composer(account *core.MarginfiAccount, swap jupiter.SwapProvider, crankClient *crank.Client) *flashloan.Composer {
	return &flashloan.Composer{
		ProgramID:    c.Config.ProgramID,
		Group:        c.Config.GroupAddress,
		Account:      account,
		Banks:        c.Banks,
		Prices:       c.Prices,
		Mints:        c.Mints,
		LookupTables: c.LookupTables,
		Swap:         swap,
		Crank:        crankClient,
		Clock:        c.clk,
		Log:          c.log,
	}
}

func (c *Client) fetchGroupBanks(ctx context.Context) (core.BankMap, error) {
	discriminator := core.AccountDiscriminator("Bank")
	result, err := c.connection.GetProgramAccountsWithOpts(ctx, c.Config.ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: discriminator}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 8, Bytes: c.Config.GroupAddress.Bytes()}},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch group banks")
	}

	banks := core.BankMap{}
	for _, keyed := range result {
		bank, err := core.DecodeBank(keyed.Pubkey, keyed.Account.Data.GetBinary())
		if err != nil {
			c.log.Warn().Str("bank", keyed.Pubkey.String()).Err(err).Msg("skipping undecodable bank")
			continue
		}
		banks[bank.Address] = bank
	}
	return banks, nil
}

// fetchMints resolves every bank mint's token program and decimals from the
// mint accounts themselves.
func (c *Client) fetchMints(ctx context.Context, banks core.BankMap) (core.MintMap, error) {
	var mintKeys []solana.PublicKey
	seen := make(map[solana.PublicKey]bool)
	for _, bank := range banks {
		if seen[bank.Mint] {
			continue
		}
		mintKeys = append(mintKeys, bank.Mint)
		seen[bank.Mint] = true
	}
	if len(mintKeys) == 0 {
		return core.MintMap{}, nil
	}

	result, err := c.connection.GetMultipleAccounts(ctx, mintKeys...)
	if err != nil {
		return nil, errors.Wrap(err, "fetch mints")
	}
	mints := core.MintMap{}
	for i, account := range result.Value {
		if account == nil {
			continue
		}
		data := account.Data.GetBinary()
		// SPL mint layout: decimals live at offset 44
		if len(data) < 45 {
			continue
		}
		mints[mintKeys[i]] = core.MintInfo{
			Mint:         mintKeys[i],
			TokenProgram: account.Owner,
			Decimals:     data[44],
		}
	}
	return mints, nil
}

func (c *Client) fetchLookupTables(ctx context.Context) ([]addresslookuptable.KeyedAddressLookupTable, error) {
	var tables []addresslookuptable.KeyedAddressLookupTable
	for _, key := range c.Config.LookupTables {
		state, err := addresslookuptable.GetAddressLookupTable(ctx, c.connection, key)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch lookup table %s", key)
		}
		tables = append(tables, addresslookuptable.KeyedAddressLookupTable{Key: key, State: *state})
	}
	return tables, nil
}
