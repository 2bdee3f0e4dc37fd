// internal/jsondiff/diff.go
package jsondiff

import (
	"errors"

	"github.com/tamzrod/printer-mirror/internal/tree"
)

// ErrEmptyResult reports a restore that produced nothing: either the
// baseline was empty or baseline and diff together yielded an empty object.
var ErrEmptyResult = errors.New("jsondiff: restore produced an empty result")

// ComputeDiff returns the keys of current that are new or changed relative to baseline.
//
// Empty values (empty string, array or object) in current are skipped.
// A key whose value changed type is copied whole; nested objects recurse and
// contribute only when their own diff is non-empty.
// Neither argument is modified. The bool reports whether the diff is non-empty.
func ComputeDiff(current, baseline *tree.Object) (*tree.Object, bool) {
	diff := tree.NewObject()

	current.Range(func(k string, cur tree.Value) bool {
		if cur.IsEmpty() {
			return true
		}

		base, ok := baseline.Get(k)
		if !ok || !tree.SameKind(cur, base) {
			diff.Set(k, cur.Clone())
			return true
		}

		if curObj, isObj := cur.Obj(); isObj {
			baseObj, _ := base.Obj()
			if sub, changed := ComputeDiff(curObj, baseObj); changed {
				diff.Set(k, tree.ObjectValue(sub))
			}
			return true
		}

		if !tree.Equal(cur, base) {
			diff.Set(k, cur.Clone())
		}
		return true
	})

	return diff, diff.Len() > 0
}

// ApplyDiff reconstructs a full document from diff and baseline.
//
// The baseline is walked first so that keys absent from diff carry forward
// unchanged. A type change in diff replaces the baseline value outright.
// Keys present only in diff are appended afterwards, recursively.
// Nested restores that come out empty are omitted.
// Neither argument is modified.
func ApplyDiff(diff, baseline *tree.Object) (*tree.Object, error) {
	if baseline.Len() == 0 {
		return nil, ErrEmptyResult
	}

	out := restore(diff, baseline)
	if out.Len() == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

func restore(diff, baseline *tree.Object) *tree.Object {
	out := tree.NewObject()

	baseline.Range(func(k string, base tree.Value) bool {
		d, ok := diff.Get(k)
		switch {
		case !ok:
			out.Set(k, base.Clone())

		case !tree.SameKind(d, base):
			out.Set(k, d.Clone())

		case base.Kind() == tree.KindObject:
			baseObj, _ := base.Obj()
			diffObj, _ := d.Obj()
			if sub := restore(diffObj, baseObj); sub.Len() > 0 {
				out.Set(k, tree.ObjectValue(sub))
			}

		case !tree.Equal(d, base):
			out.Set(k, d.Clone())

		default:
			out.Set(k, base.Clone())
		}
		return true
	})

	appendMissing(out, diff)
	return out
}

// appendMissing inserts keys of diff that out does not have yet, and merges
// new sub-keys into nested objects that both sides share.
func appendMissing(out, diff *tree.Object) {
	diff.Range(func(k string, d tree.Value) bool {
		existing, ok := out.Get(k)
		if !ok {
			if d.Kind() == tree.KindObject {
				diffObj, _ := d.Obj()
				sub := tree.NewObject()
				appendMissing(sub, diffObj)
				if sub.Len() > 0 {
					out.Set(k, tree.ObjectValue(sub))
				}
				return true
			}
			out.Set(k, d.Clone())
			return true
		}

		outObj, outIsObj := existing.Obj()
		diffObj, diffIsObj := d.Obj()
		if outIsObj && diffIsObj {
			appendMissing(outObj, diffObj)
		}
		return true
	})
}
