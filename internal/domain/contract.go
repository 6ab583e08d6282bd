package domain

import (
	"net/mail"
	"strings"
	"time"
)

// ContractType mirrors the plan tiers sold by the platform.
type ContractType string

const (
	ContractBasic        ContractType = "basic"
	ContractProfessional ContractType = "professional"
	ContractEnterprise   ContractType = "enterprise"
	ContractCustom       ContractType = "custom"
)

// ContractStatus tracks the contract lifecycle in the store.
type ContractStatus string

const (
	ContractActive         ContractStatus = "active"
	ContractExpired        ContractStatus = "expired"
	ContractCancelled      ContractStatus = "cancelled"
	ContractPendingRenewal ContractStatus = "pending_renewal"
	ContractDraft          ContractStatus = "draft"
)

// Contract is the stored contract document, one per account.
// The workflow only ever reads it through a ContractSnapshot projection.
type Contract struct {
	ContractID     string         `json:"contract_id"`
	AccountID      string         `json:"account_id"`
	ContractType   ContractType   `json:"contract_type"`
	Status         ContractStatus `json:"status"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	RenewalDate    time.Time      `json:"renewal_date"`
	BaseMonthlyFee float64        `json:"base_monthly_fee"`
	AutoRenewal    bool           `json:"auto_renewal"`
	Features       []string       `json:"features,omitempty"`
	UsageLimits    Attributes     `json:"usage_limits,omitempty"`
	PrimaryContact Contact        `json:"primary_contact"`
	BillingContact Contact        `json:"billing_contact,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (c *Contract) Validate() error {
	if strings.TrimSpace(c.AccountID) == "" {
		return ErrInvalidInput
	}
	switch c.ContractType {
	case ContractBasic, ContractProfessional, ContractEnterprise, ContractCustom:
	default:
		return ErrInvalidInput
	}
	if c.PrimaryContact.Email != "" {
		if _, err := mail.ParseAddress(c.PrimaryContact.Email); err != nil {
			return ErrInvalidInput
		}
	}
	return ValidateAttributes(c.UsageLimits)
}

// Snapshot projects the stored contract into the read-only view the workflow consumes.
func (c *Contract) Snapshot() ContractSnapshot {
	terms := Attributes{
		"term_length":  "12 months",
		"auto_renewal": c.AutoRenewal,
	}
	if len(c.Features) > 0 {
		features := make([]any, 0, len(c.Features))
		for _, f := range c.Features {
			features = append(features, f)
		}
		terms["features"] = features
	}
	for k, v := range c.UsageLimits {
		terms["limit_"+k] = v
	}
	return ContractSnapshot{
		AccountID:    c.AccountID,
		CurrentPlan:  planName(c.ContractType),
		EndDate:      c.EndDate,
		RenewalDate:  c.RenewalDate,
		CurrentSpend: c.BaseMonthlyFee,
		Terms:        terms,
		Contact:      c.PrimaryContact,
		Billing:      c.BillingContact,
	}
}

func planName(t ContractType) string {
	switch t {
	case ContractProfessional:
		return "Professional"
	case ContractEnterprise:
		return "Enterprise"
	case ContractCustom:
		return "Custom"
	default:
		return "Basic"
	}
}
