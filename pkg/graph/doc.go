// Package graph builds a subsumption hierarchy over phrases described by
// sorted token sequences.
//
// # Overview
//
// Every [Element] carries an ID and a sorted token sequence. An edge
// parent→child exists when the parent's tokens are a strict sub-multiset of
// the child's, so walking child edges goes from general phrases ("shoes") to
// specific ones ("red running shoes"). Elements with identical tokens are
// absorbed into a single representative, which keeps a duplicate edge to each
// merged element.
//
// # Basic Usage
//
// Load elements into a [Store] and let a [Builder] position them:
//
//	s := graph.NewStore[int, string]()
//	s.Create(1, []string{"shoes"}, false)
//	s.Create(2, []string{"running", "shoes"}, false)
//
//	b := graph.NewBuilder(s, graph.Options{})
//	res, err := b.Upbuild(ctx)
//
// [Builder.Upbuild] processes every pending element in ascending token count,
// attaching each one as deep as it fits in the existing branches. When a new
// element lands between an already built parent and some of that parent's
// children, those children are moved under it.
//
// Query the result with [Builder.Roots], [Element.Children], [Element.Parents],
// [Builder.Descendants] and [Builder.Ancestors]. [Validate] checks the
// structural invariants: sorted tokens, mirrored edges, strict containment
// along every edge, unique tokens among active elements and acyclicity.
//
// # Tokens
//
// The containment test lives in package tokens and requires both sequences
// to be sorted ascending. The graph never sorts tokens; ingestion code does.
//
// # Absorbed Elements
//
// An absorbed element has no edge sets: [Element.Edges] returns false and
// [Element.Parents] and friends return nil. Use [Element.DuplicateOf] or
// [Builder.Resolve] to reach the representative.
//
// # Insertion Order
//
// Batches that arrive in ascending token count produce the minimal
// hierarchy (no edge implied by two others). A shorter phrase that arrives
// after longer ones is only compared against the current roots and may miss
// supersets deeper in the graph. [Options.ExhaustiveRelink] closes that gap
// at the cost of a scan per insertion; [Builder.Rebuild] restores the
// minimal shape in one pass.
//
// # Diagnostics
//
// Recoverable anomalies (missing neighbours, rejected absorptions, failed
// insertions) never abort a pass. They are reported through a [Sink], whose
// signature matches (*log.Logger).Log of charmbracelet/log, and summarised
// in the [BuildResult].
//
// # Concurrency
//
// Stores and builders are not safe for concurrent use. Callers serialise all
// mutating calls with one exclusive lock; reads are only safe alongside
// other reads.
package graph
