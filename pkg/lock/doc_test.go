package lock_test

import (
	"fmt"
	"log"

	"github.com/MatthiasKunnen/keylock/pkg/audit"
	"github.com/MatthiasKunnen/keylock/pkg/auth"
	"github.com/MatthiasKunnen/keylock/pkg/credential"
	"github.com/MatthiasKunnen/keylock/pkg/lock"
)

type printRenderer struct{}

func (printRenderer) RenderPhase(p lock.Phase) {
	fmt.Println("phase:", p)
}

type printAudit struct{}

func (printAudit) Locked(user string)   { fmt.Println("audit: locked", user) }
func (printAudit) Unlocked(user string) { fmt.Println("audit: unlocked", user) }
func (printAudit) AttemptFailed(user string, reason audit.Reason) {
	fmt.Println("audit: failed", user, reason)
}

type staticPassword string

func (s staticPassword) Verify(_ auth.Session, credential []byte) auth.Outcome {
	if string(credential) == string(s) {
		return auth.OutcomeUnlocked
	}
	return auth.OutcomeRejected
}

func ExampleMachine() {
	m, err := lock.New(lock.Config{
		Session:       auth.Session{User: "alice", Service: "keylock"},
		Authenticator: staticPassword("abc"),
		Renderer:      printRenderer{},
		Audit:         printAudit{},
		Terminator:    lock.TerminatorFunc(func() { fmt.Println("terminate") }),
	})
	if err != nil {
		log.Fatalf("Failed to create lock: %v", err)
	}
	defer m.Close()

	m.Lock()

	keys := []credential.Event{
		{Key: credential.KeyReturn},
		{Key: credential.KeyCharacter, Bytes: []byte("x")},
		{Key: credential.KeyReturn},
		{Key: credential.KeyReturn},
		{Key: credential.KeyCharacter, Bytes: []byte("a")},
		{Key: credential.KeyCharacter, Bytes: []byte("b")},
		{Key: credential.KeyCharacter, Bytes: []byte("c")},
		{Key: credential.KeyReturn},
	}
	for _, k := range keys {
		m.HandleKey(k)
	}

	// Output:
	// phase: idle
	// audit: locked alice
	// phase: recording
	// phase: idle
	// audit: failed alice rejected
	// phase: recording
	// phase: idle
	// audit: unlocked alice
	// terminate
}
