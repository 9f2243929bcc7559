// Package mocks provides mock implementations for testing purposes.
package mocks

//go:generate mockgen -destination=mock_interfaces.go -package=mocks github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces TransferService,TransferStore,EventPublisher
