// Package domain models meteorological warnings published by IMGW, the
// Polish Institute of Meteorology and Water Management.
//
// # Data Source
//
// Warnings come from the public IMGW API at
// https://danepubliczne.imgw.pl/api/data/warningsmeteo. The feed returns
// either a bare JSON array of warning records or an object whose "warnings"
// key holds that array. Field names are Polish and have drifted across feed
// revisions, so the normalizer extracts each canonical field through an
// ordered list of key aliases (first non-empty value wins):
//
//	id | symbol | uuid       →  stable identifier (may be absent)
//	nazwa_zdarzenia          →  title, e.g. "Silny wiatr"
//	stopien                  →  level, "1".."3" severity degree
//	prawdopodobienstwo       →  probability of occurrence, percent
//	obowiazuje_od            →  start of validity
//	obowiazuje_do            →  end of validity
//	opublikowano             →  publication time
//	tresc                    →  full warning text
//	komentarz                →  forecaster comment
//	biuro                    →  issuing forecast office
//	teryt                    →  affected county codes
//
// # TERYT Codes
//
// Affected areas are identified by four-digit TERYT county codes from the
// national territorial register, e.g. "0401" (powiat bydgoski). The same
// codes key the county boundaries used for point-in-region resolution, which
// is how a caller's coordinate is joined to active warnings.
//
// # Identifier Stability
//
// The stable identifier is intended to be unique per warning across fetches
// but is missing from some records. Records without one are matched by the
// (title, start) pair during reconciliation — a degraded fallback that can
// merge distinct warnings sharing a title and start time. Feeds have also
// been observed carrying the literal strings "None" and "null" in the
// identifier field; both are treated as missing.
//
// # Timestamps
//
// Validity and publication times arrive as "2006-01-02 15:04:05" style
// strings without a zone offset, occasionally as RFC 3339. Zone-less values
// are interpreted as UTC. Records with unparsable or absent start/end times
// are stored but never reported as active, because their validity window
// cannot be evaluated.
package domain
