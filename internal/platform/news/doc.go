// Package news implements the fetch stage of the analysis pipeline: it reads
// a news search RSS feed for an entity and extracts the text of each linked
// article with goquery, falling back to the feed's own description when a
// page cannot be read.
package news
