// Package services holds recall's core logic behind the driving ports:
// the indexing pipeline that turns summary records into fragments for both
// indexes, the retrieval engine that fuses lexical and semantic rankings,
// the bucket selection policy and the settings service.
//
// Services depend only on domain types and driven ports.
package services
