// Package crank decides which oracle feeds and integration reserves need
// refreshing before a health check, and produces the instructions that do
// it.
package crank

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Client talks to a crossbar-style feed update service: given a set of pull
// oracle feeds it returns ready-to-submit update instructions.
type Client struct {
	http    *resty.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		http:    resty.New().SetBaseURL(baseURL),
		baseURL: baseURL,
	}
}

type instructionPayload struct {
	ProgramID string           `json:"programId"`
	Accounts  []accountPayload `json:"accounts"`
	Data      string           `json:"data"`
}

type accountPayload struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type updateResponse struct {
	Instructions []instructionPayload `json:"instructions"`
	LookupTables []string             `json:"lookupTables,omitempty"`
}

// FetchUpdateInstructions asks the service for crank instructions covering
// the given feeds, with the payer as the update fee payer.
func (c *Client) FetchUpdateInstructions(ctx context.Context, feeds []solana.PublicKey, payer solana.PublicKey) ([]solana.Instruction, error) {
	if len(feeds) == 0 {
		return nil, nil
	}
	feedParams := make([]string, len(feeds))
	for i, feed := range feeds {
		feedParams[i] = feed.String()
	}

	var result updateResponse
	response, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("feeds", strings.Join(feedParams, ",")).
		SetQueryParam("payer", payer.String()).
		SetResult(&result).
		Get("/updates")
	if err != nil {
		return nil, errors.Wrap(err, "fetch feed updates")
	}
	if response.IsError() {
		return nil, errors.Errorf("feed update service returned %s", response.Status())
	}

	instructions := make([]solana.Instruction, 0, len(result.Instructions))
	for i, payload := range result.Instructions {
		instruction, err := decodeInstruction(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode update instruction %d", i)
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}

func decodeInstruction(payload instructionPayload) (solana.Instruction, error) {
	programId, err := solana.PublicKeyFromBase58(payload.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("bad program id %q: %w", payload.ProgramID, err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(payload.Accounts))
	for _, account := range payload.Accounts {
		pubkey, err := solana.PublicKeyFromBase58(account.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("bad account %q: %w", account.Pubkey, err)
		}
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  pubkey,
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		})
	}
	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return nil, fmt.Errorf("bad instruction data: %w", err)
	}
	return solana.NewInstruction(programId, metas, data), nil
}
