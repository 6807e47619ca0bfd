package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

func TestBlockCascadesPairState(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{})

	ab := env.send(t, "a", "b")
	_, grant, err := env.core.Interests.AcceptInterest(ctx, "b", ab.ID, durationPtr(models.DurationPermanent))
	if err != nil {
		t.Fatalf("AcceptInterest: %v", err)
	}
	ba := env.send(t, "b", "a")

	if err := env.core.Blocks.Block(ctx, "a", "b"); err != nil {
		t.Fatalf("Block: %v", err)
	}

	if got := env.connection(t, "b", "a"); got != models.ConnectionNone {
		t.Errorf("connection = %s, want none", got)
	}
	for _, id := range []string{ab.ID, ba.ID} {
		if env.mr.Exists(interestKey(id)) {
			t.Errorf("interest %s survived block", id)
		}
	}
	if _, err := env.core.Grants.Get(ctx, grant.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("grant lookup err = %v, want ErrNotFound", err)
	}
	for _, uid := range []string{"a", "b"} {
		for _, box := range []models.InterestBox{models.InterestBoxSent, models.InterestBoxReceived} {
			list, err := env.core.Interests.ListInterests(ctx, uid, box)
			if err != nil {
				t.Fatalf("ListInterests: %v", err)
			}
			if len(list) != 0 {
				t.Errorf("%s %s box not empty: %+v", uid, box, list)
			}
		}
	}

	blocked, err := env.core.Blocks.IsBlocked(ctx, "a", "b")
	if err != nil || !blocked {
		t.Errorf("IsBlocked(a, b) = %v, %v", blocked, err)
	}
	reverse, err := env.core.Blocks.IsBlocked(ctx, "b", "a")
	if err != nil || reverse {
		t.Errorf("IsBlocked(b, a) = %v, %v", reverse, err)
	}
	either, err := eitherBlocked(ctx, env.rdb, "b", "a")
	if err != nil || !either {
		t.Errorf("EitherBlocked = %v, %v", either, err)
	}
}

func TestBlockedUserCannotAcceptPending(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{})

	it := env.send(t, "a", "b")
	if err := env.core.Blocks.Block(ctx, "a", "b"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if _, _, err := env.core.Interests.AcceptInterest(ctx, "b", it.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("accept after block err = %v", err)
	}
	if _, err := env.core.Interests.SendInterest(ctx, "b", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("send to blocker err = %v", err)
	}
}

func TestUnblockDoesNotRestore(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{})

	it := env.send(t, "a", "b")
	if _, _, err := env.core.Interests.AcceptInterest(ctx, "b", it.ID, nil); err != nil {
		t.Fatalf("AcceptInterest: %v", err)
	}
	if err := env.core.Blocks.Block(ctx, "b", "a"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if err := env.core.Blocks.Unblock(ctx, "b", "a"); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if got := env.connection(t, "a", "b"); got != models.ConnectionNone {
		t.Errorf("connection after unblock = %s", got)
	}
	// The pair can start over.
	env.send(t, "a", "b")
}

func TestListBlockedSorted(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "owner", models.PrivacySettings{})
	for _, id := range []string{"zed", "amy", "kim"} {
		env.addUser(t, id, models.PrivacySettings{})
		if err := env.core.Blocks.Block(ctx, "owner", id); err != nil {
			t.Fatalf("Block(%s): %v", id, err)
		}
	}
	// Repeating a block is a no-op.
	if err := env.core.Blocks.Block(ctx, "owner", "kim"); err != nil {
		t.Fatalf("repeat Block: %v", err)
	}
	got, err := env.core.Blocks.ListBlocked(ctx, "owner")
	if err != nil {
		t.Fatalf("ListBlocked: %v", err)
	}
	if want := []string{"amy", "kim", "zed"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListBlocked = %v, want %v", got, want)
	}
}

func TestSelfBlockRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	if err := env.core.Blocks.Block(context.Background(), "a", "a"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestBlockUnknownUser(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})

	if err := env.core.Blocks.Block(ctx, "a", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	list, err := env.core.Blocks.ListBlocked(ctx, "a")
	if err != nil {
		t.Fatalf("ListBlocked: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListBlocked = %v, want empty", list)
	}
}

func TestBlockUnblockKeepsDeclineCooldown(t *testing.T) {
	for _, c := range []struct {
		name     string
		cooldown time.Duration
		blocker  string
		blocked  string
	}{
		{"sender blocks", 0, "a", "b"},
		{"recipient blocks", 0, "b", "a"},
		{"permanent decline", -1, "a", "b"},
	} {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t, Options{DeclineCooldown: c.cooldown})
			ctx := context.Background()
			env.addUser(t, "a", models.PrivacySettings{})
			env.addUser(t, "b", models.PrivacySettings{})

			it := env.send(t, "a", "b")
			if _, err := env.core.Interests.DeclineInterest(ctx, "b", it.ID); err != nil {
				t.Fatalf("DeclineInterest: %v", err)
			}
			if err := env.core.Blocks.Block(ctx, c.blocker, c.blocked); err != nil {
				t.Fatalf("Block: %v", err)
			}
			if err := env.core.Blocks.Unblock(ctx, c.blocker, c.blocked); err != nil {
				t.Fatalf("Unblock: %v", err)
			}
			if _, err := env.core.Interests.SendInterest(ctx, "a", "b"); !errors.Is(err, ErrDeclined) {
				t.Fatalf("resend after block and unblock err = %v, want ErrDeclined", err)
			}
			if c.cooldown < 0 {
				return
			}
			env.clock.Advance(DefaultDeclineCooldown + time.Hour)
			env.send(t, "a", "b")
		})
	}
}

func TestBlockRemovesReplacedInterests(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.addUser(t, "a", models.PrivacySettings{})
	env.addUser(t, "b", models.PrivacySettings{})
	env.addUser(t, "c", models.PrivacySettings{})

	first := env.send(t, "a", "b")
	if _, err := env.core.Interests.DeclineInterest(ctx, "b", first.ID); err != nil {
		t.Fatalf("DeclineInterest: %v", err)
	}
	env.clock.Advance(DefaultDeclineCooldown + time.Hour)
	second := env.send(t, "a", "b")
	other := env.send(t, "c", "b")

	if err := env.core.Blocks.Block(ctx, "b", "a"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	for _, id := range []string{first.ID, second.ID} {
		if env.mr.Exists(interestKey(id)) {
			t.Errorf("interest %s survived block", id)
		}
	}
	inbox, err := env.core.Interests.ListInterests(ctx, "b", models.InterestBoxReceived)
	if err != nil {
		t.Fatalf("ListInterests: %v", err)
	}
	if len(inbox) != 1 || inbox[0].ID != other.ID {
		t.Errorf("inbox after block = %+v, want only %s", inbox, other.ID)
	}
	sent, err := env.core.Interests.ListInterests(ctx, "a", models.InterestBoxSent)
	if err != nil {
		t.Fatalf("ListInterests: %v", err)
	}
	if len(sent) != 0 {
		t.Errorf("blocked user's sent box = %+v", sent)
	}
}
