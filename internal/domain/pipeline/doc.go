// Package pipeline contains the Record Pipeline bounded context.
// This context normalizes raw storefront records into flat tables and
// reconciles customers with orders for reporting.
//
// Key concepts:
//   - Node: tagged variant over the nested record trees returned by storefronts
//   - Record: one flattened record, keyed by joined path segments
//   - Table: an ordered-column accumulation of records across stores
//   - Reconcile: the left join of accumulated orders onto accumulated customers
//
// Design Pattern: Ports & Adapters
//   - Ports (Source, Sink) are defined here in the domain layer
//   - Adapters (Shopify client, Sheets sink) are in the infrastructure layer
package pipeline
