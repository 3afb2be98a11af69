// Package comparative implements the cross-item comparison that turns a list
// of per-article analyses into a sentiment distribution, topic overlap and
// divergence between every pair of articles, and a templated summary.
//
// Everything here is deterministic and free of I/O so it can be tested
// exhaustively and called while no locks are held.
package comparative
