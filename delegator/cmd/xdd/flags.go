package main

const (
	homeFlag        = "home"
	forceFlag       = "force"
	parachainIDFlag = "parachain-id"
	rpcListenerFlag = "rpc-listener"
)
