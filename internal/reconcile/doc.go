/*
Package reconcile computes and applies the minimal modification needed to
bring one attribute of a directory entry to a desired state.

A Reconciler is built from a Target (entry DN and attribute name), a desired
ValueSet and a Mode, and runs once:

  - ModePresent adds the desired values that the server reports missing
  - ModeAbsent deletes the desired values that the server reports present
  - ModeExact forces the attribute to exactly the desired values, preferring
    a plain add onto an empty attribute and a full attribute delete over a
    replace when either side is empty

Present and absent decisions delegate equality to the server through
Session.ValuePresent. Exact mode needs the complete current set and compares
locally, which ignores the server's matching rules; semantically equal but
lexically distinct values can therefore report spurious changes. This is a
known, accepted imprecision.

Planning never mutates the directory. In check mode the plan is still
computed, including its read-side queries, but is never applied.
*/
package reconcile
