// Package domain contains the core business entities for reqspan.
// These types are shared between the extraction engine, the services
// and the adapters, and carry no infrastructure dependencies.
package domain
