// Package domain models the waste-code catalog of an EfB certificate
// ("Entsorgungsfachbetrieb" certification under the German KrWG).
//
// # Data Source
//
// Each certificate carries one annex ("Anlage N zum Zertifikat") per certified
// site. An annex lists the site address, a description of the certified
// activities and the waste types accepted there, keyed by their AVV code
// (Abfallverzeichnis-Verordnung). The certificate package extracts annexes
// from the document text; this package holds the resulting records and the
// lookups run against them.
//
// # AVV Code Conventions
//
// Code format:
//
//	Six digits in three pairs: chapter, group, type, e.g. "20 01 08".
//	Users type them as "20 01 08", "200108" or "20.01.08". All non-digits are
//	stripped. Five remaining digits are treated as a chapter with a dropped
//	leading zero ("20108" -> "020108"). Anything else is invalid.
//	Chapters run from 01 to 20; lines in the document whose leading pair falls
//	outside that range are page numbers or dates, not codes.
//
// Hazardous marker:
//
//	A trailing "*" (e.g. "19 02 04*") marks hazardous waste. The code itself
//	stays six digits; the marker is kept as a separate flag.
//
// Similarity:
//
//	When a code is not listed at a site, codes sharing the group (first four
//	digits) are suggested first, then codes sharing the chapter (first two).
//
// # Site Selection
//
// Only biogas and digestion sites are seeded by default. The selection is a
// keyword match against the activity description, see [IsBiogasSite].
package domain
