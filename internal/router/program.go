package router

// Each program below compiles one of the router's normative routing tables
// into a two-relation join: a fixed rule table loaded as base facts, and a single
// per-call signal fact supplying the join key that Go already resolved
// (priority order and numeric bucketing happen in Go — see resolve.go —
// because the exact comparison-operator surface of the vendored Mangle
// release isn't something this package verifies at compile time; the table
// lookup itself, which is genuinely single-valued per key, is what the rules
// evaluate).

const planningProgram = `
Decl planning_rule(Condition, Strategy).
Decl planning_signal(Condition).
Decl planning_decision(Strategy).

planning_rule(/dangerous, /HALT).
planning_rule(/low_confidence, /CLARIFY).
planning_rule(/ambiguous, /DIALECTIC).
planning_rule(/complexity_no, /SINGLE_SHOT).
planning_rule(/complexity_yes, /HARMONIC_5).

planning_decision(S) :- planning_signal(C), planning_rule(C, S).
`

const taskProgram = `
Decl task_rule(Condition, Strategy).
Decl task_signal(Condition).
Decl task_decision(Strategy).

task_rule(/ge_085, /SINGLE_SHOT).
task_rule(/ge_06, /INTERFERENCE).
task_rule(/ge_03, /VORTEX).
task_rule(/lt_03, /CLARIFY).

task_decision(S) :- task_signal(C), task_rule(C, S).
`

const fixProgram = `
Decl fix_rule(Kind, Strategy).
Decl fix_signal(Kind).
Decl fix_decision(Strategy).

fix_rule(/Syntax, /TOOLCHAIN_AUTOFIX).
fix_rule(/Lint, /TOOLCHAIN_AUTOFIX).
fix_rule(/Type, /DIRECT_FIX).
fix_rule(/Import, /DEPENDENCY_RESOLVE).
fix_rule(/Runtime, /HOTSPOT_SCAN).
fix_rule(/Test, /DIALECTIC).
fix_rule(/Timeout, /DIRECT_FIX).

fix_decision(S) :- fix_signal(K), fix_rule(K, S).
`
