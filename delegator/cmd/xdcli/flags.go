package main

const (
	daemonAddressFlag = "daemon-address"
	tokenFlag         = "token"
	protocolFlag      = "protocol"
	delegatorFlag     = "delegator"
	validatorFlag     = "validator"
	indexFlag         = "index"
	taskFlag          = "task"
	amountFlag        = "amount"
	eraFlag           = "era"
	weightFlag        = "weight"
	feeFlag           = "fee"
	permillFlag       = "permill"
	intervalFlag      = "interval"
	valueFlag         = "value"
	ledgerFlag        = "ledger"

	tokenEnvVar = "XDD_API_TOKEN"
)
