// Package jupiter wraps the Jupiter swap aggregator behind the
// SwapProvider interface the flash-loan composer depends on.
package jupiter

import (
	"context"
	"slices"
	"strconv"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/ilkamo/jupiter-go/jupiter"
	"github.com/pkg/errors"
)

const (
	SwapModeExactIn  jupiter.GetQuoteParamsSwapMode = "ExactIn"
	SwapModeExactOut jupiter.GetQuoteParamsSwapMode = "ExactOut"
)

// QuoteRequest is one route query. MaxAccounts bounds how many accounts the
// returned route may touch; the composer issues the same request under
// several bounds to trade route quality against transaction size.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps int
	SwapMode    jupiter.GetQuoteParamsSwapMode
	MaxAccounts int
}

// SwapRoute is a quoted route plus everything needed to splice it into an
// outer transaction.
type SwapRoute struct {
	Quote        *jupiter.QuoteResponse
	Instructions []solana.Instruction
	LookupTables []addresslookuptable.KeyedAddressLookupTable
	InAmount     uint64
	OutAmount    uint64
}

// SwapProvider is the aggregator boundary: quote a route and realize it as
// instructions. Implementations are expected to be stateless per call.
type SwapProvider interface {
	GetSwapRoute(ctx context.Context, req QuoteRequest, user solana.PublicKey) (*SwapRoute, error)
}

type Client struct {
	connection       *rpc.Client
	jupiterClient    *jupiter.ClientWithResponses
	lookupTableCache map[string]addresslookuptable.KeyedAddressLookupTable
}

func NewClient(connection *rpc.Client, url string) (*Client, error) {
	endpoint := url
	if endpoint == "" {
		endpoint = jupiter.DefaultAPIURL
	}
	client, err := jupiter.NewClientWithResponses(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "create jupiter client")
	}
	return &Client{
		connection:       connection,
		jupiterClient:    client,
		lookupTableCache: make(map[string]addresslookuptable.KeyedAddressLookupTable),
	}, nil
}

// GetSwapRoute quotes the requested pair, asks the aggregator to build the
// swap transaction for the user, and strips it down to the bare swap
// instructions plus the lookup tables the route needs.
func (c *Client) GetSwapRoute(ctx context.Context, req QuoteRequest, user solana.PublicKey) (*SwapRoute, error) {
	quote, err := c.getQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	transaction, err := c.getSwapTransaction(ctx, quote, user, req.SlippageBps)
	if err != nil {
		return nil, err
	}

	message := &transaction.Message
	lookupTables := c.resolveLookupTables(ctx, message)
	instructions, err := extractSwapInstructions(message, req.InputMint, req.OutputMint)
	if err != nil {
		return nil, err
	}

	return &SwapRoute{
		Quote:        quote,
		Instructions: instructions,
		LookupTables: lookupTables,
		InAmount:     parseAmount(quote.InAmount),
		OutAmount:    parseAmount(quote.OutAmount),
	}, nil
}

func (c *Client) getQuote(ctx context.Context, req QuoteRequest) (*jupiter.QuoteResponse, error) {
	params := &jupiter.GetQuoteParams{
		InputMint:  req.InputMint.String(),
		OutputMint: req.OutputMint.String(),
		Amount:     int64(req.Amount),
	}
	if req.SlippageBps > 0 {
		slippage := jupiter.SlippageParameter(req.SlippageBps)
		params.SlippageBps = &slippage
	}
	if req.SwapMode != "" {
		params.SwapMode = &req.SwapMode
	}
	// ExactOut routing ignores the account bound upstream
	if req.MaxAccounts > 0 && req.SwapMode != SwapModeExactOut {
		maxAccounts := req.MaxAccounts
		params.MaxAccounts = &maxAccounts
	}
	response, err := c.jupiterClient.GetQuoteWithResponse(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "jupiter quote")
	}
	if response.JSON200 == nil {
		return nil, errors.Errorf("jupiter quote failed: %s", response.Status())
	}
	return response.JSON200, nil
}

func (c *Client) getSwapTransaction(ctx context.Context, quote *jupiter.QuoteResponse, user solana.PublicKey, slippageBps int) (*solana.Transaction, error) {
	response, err := c.jupiterClient.PostSwapWithResponse(ctx, jupiter.PostSwapJSONRequestBody{
		QuoteResponse: *quote,
		UserPublicKey: user.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "jupiter swap")
	}
	if response.JSON200 == nil {
		return nil, errors.Errorf("jupiter swap failed: %s", response.Status())
	}
	transaction := &solana.Transaction{}
	if err := transaction.UnmarshalBase64(response.JSON200.SwapTransaction); err != nil {
		return nil, errors.Wrap(err, "decode swap transaction")
	}
	return transaction, nil
}

func (c *Client) resolveLookupTables(ctx context.Context, message *solana.Message) []addresslookuptable.KeyedAddressLookupTable {
	var tables []addresslookuptable.KeyedAddressLookupTable
	for _, lookup := range message.AddressTableLookups {
		table := c.getLookupTable(ctx, lookup.AccountKey)
		if table.Key.IsZero() {
			continue
		}
		tables = append(tables, table)
	}
	return tables
}

func (c *Client) getLookupTable(ctx context.Context, accountKey solana.PublicKey) addresslookuptable.KeyedAddressLookupTable {
	if table, ok := c.lookupTableCache[accountKey.String()]; ok {
		return table
	}
	state, err := addresslookuptable.GetAddressLookupTable(ctx, c.connection, accountKey)
	if err != nil {
		return addresslookuptable.KeyedAddressLookupTable{}
	}
	table := addresslookuptable.KeyedAddressLookupTable{Key: accountKey, State: *state}
	c.lookupTableCache[accountKey.String()] = table
	return table
}

// extractSwapInstructions drops the noise the aggregator wraps around the
// swap: compute-budget preludes, bare token/system transfers, and ATA
// creation for the pair's own mints (the outer builder manages those).
func extractSwapInstructions(message *solana.Message, inputMint, outputMint solana.PublicKey) ([]solana.Instruction, error) {
	compiled := slices.Clone(message.Instructions)
	compiled = slices.DeleteFunc(compiled, func(instruction solana.CompiledInstruction) bool {
		programId, err := message.Program(instruction.ProgramIDIndex)
		if err != nil {
			return false
		}
		switch programId {
		case solana.ComputeBudget:
			return true
		case solana.TokenProgramID:
			return true
		case solana.SystemProgramID:
			return true
		case solana.SPLAssociatedTokenAccountProgramID:
			if len(instruction.Accounts) > 3 {
				mintKey := message.AccountKeys[instruction.Accounts[3]]
				return mintKey.Equals(inputMint) || mintKey.Equals(outputMint)
			}
		}
		return false
	})

	var instructions []solana.Instruction
	for _, cix := range compiled {
		accounts, err := cix.ResolveInstructionAccounts(message)
		if err != nil {
			return nil, errors.Wrap(err, "resolve swap instruction accounts")
		}
		programId, err := message.Program(cix.ProgramIDIndex)
		if err != nil {
			return nil, errors.Wrap(err, "resolve swap program id")
		}
		instructions = append(instructions, solana.NewInstruction(programId, accounts, cix.Data))
	}
	return instructions, nil
}

func parseAmount(s string) uint64 {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
