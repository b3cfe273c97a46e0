package command

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindChangeHosting  Kind = "CHANGE_HOSTING"
	KindPayForHosting  Kind = "PAY_FOR_HOSTING"
	KindNormalizeSite  Kind = "NORMALIZE_SITE"
	KindSendVacation   Kind = "SEND_VACATION"
	KindCancelVacation Kind = "CANCEL_VACATION"
	KindCompleteWork   Kind = "COMPLETE_WORK"
	KindDoWork         Kind = "DO_WORK"
	KindLevelUp        Kind = "LEVEL_UP"
	KindEnableContent  Kind = "ENABLE_CONTENT"
	KindEnableAd       Kind = "ENABLE_AD"
)

// Command is one mutating request to the domain store. Only the fields relevant to Kind
// are set; Policy and Reason describe why the core issued it.
type Command struct {
	Kind Kind `json:"kind"`

	Site    string `json:"site,omitempty"`
	Worker  string `json:"worker,omitempty"`
	Content string `json:"content,omitempty"`
	Ad      string `json:"ad,omitempty"`

	HostingID int   `json:"hosting_id,omitempty"`
	Amount    int64 `json:"amount,omitempty"`

	Policy string `json:"policy,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func ChangeHosting(site string, tier int) Command {
	return Command{Kind: KindChangeHosting, Site: site, HostingID: tier}
}

func PayForHosting(site string, amount int64) Command {
	return Command{Kind: KindPayForHosting, Site: site, Amount: amount}
}

func NormalizeSite(site string) Command {
	return Command{Kind: KindNormalizeSite, Site: site}
}

func SendVacation(worker string) Command {
	return Command{Kind: KindSendVacation, Worker: worker}
}

func CancelVacation(worker string) Command {
	return Command{Kind: KindCancelVacation, Worker: worker}
}

func CompleteWork(worker string) Command {
	return Command{Kind: KindCompleteWork, Worker: worker}
}

func DoWork(worker, site string) Command {
	return Command{Kind: KindDoWork, Worker: worker, Site: site}
}

func LevelUp(site string) Command {
	return Command{Kind: KindLevelUp, Site: site}
}

func EnableContent(site, content string) Command {
	return Command{Kind: KindEnableContent, Site: site, Content: content}
}

func EnableAd(site, ad string) Command {
	return Command{Kind: KindEnableAd, Site: site, Ad: ad}
}

// Because returns a copy annotated with the issuing policy and a short reason.
func (c Command) Because(policy, reason string) Command {
	c.Policy = policy
	c.Reason = reason
	return c
}

// Target names the entity the command mutates, for logs and indexes.
func (c Command) Target() string {
	if c.Worker != "" {
		return c.Worker
	}
	return c.Site
}

func (c Command) String() string {
	switch c.Kind {
	case KindChangeHosting:
		return fmt.Sprintf("%s site=%s tier=%d", c.Kind, c.Site, c.HostingID)
	case KindPayForHosting:
		return fmt.Sprintf("%s site=%s amount=%d", c.Kind, c.Site, c.Amount)
	case KindDoWork:
		return fmt.Sprintf("%s worker=%s site=%s", c.Kind, c.Worker, c.Site)
	case KindEnableContent:
		return fmt.Sprintf("%s site=%s content=%s", c.Kind, c.Site, c.Content)
	case KindEnableAd:
		return fmt.Sprintf("%s site=%s ad=%s", c.Kind, c.Site, c.Ad)
	default:
		return fmt.Sprintf("%s %s", c.Kind, c.Target())
	}
}

var ErrInvalid = errors.New("invalid command")

type validator func(c Command) error

var validators = map[Kind]validator{
	KindChangeHosting: func(c Command) error {
		if err := need("site", c.Site); err != nil {
			return err
		}
		if c.HostingID <= 0 {
			return fmt.Errorf("hosting_id must be positive")
		}
		return nil
	},
	KindPayForHosting: func(c Command) error {
		if err := need("site", c.Site); err != nil {
			return err
		}
		if c.Amount <= 0 {
			return fmt.Errorf("amount must be positive")
		}
		return nil
	},
	KindNormalizeSite:  func(c Command) error { return need("site", c.Site) },
	KindSendVacation:   func(c Command) error { return need("worker", c.Worker) },
	KindCancelVacation: func(c Command) error { return need("worker", c.Worker) },
	KindCompleteWork:   func(c Command) error { return need("worker", c.Worker) },
	KindDoWork: func(c Command) error {
		if err := need("worker", c.Worker); err != nil {
			return err
		}
		return need("site", c.Site)
	},
	KindLevelUp: func(c Command) error { return need("site", c.Site) },
	KindEnableContent: func(c Command) error {
		if err := need("site", c.Site); err != nil {
			return err
		}
		return need("content", c.Content)
	},
	KindEnableAd: func(c Command) error {
		if err := need("site", c.Site); err != nil {
			return err
		}
		return need("ad", c.Ad)
	},
}

// Validate checks that the fields required by the command's kind are present.
func (c Command) Validate() error {
	v, ok := validators[c.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, c.Kind)
	}
	if err := v(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, c.Kind, err)
	}
	return nil
}

func KnownKind(k Kind) bool {
	_, ok := validators[k]
	return ok
}

func need(field, v string) error {
	if v == "" {
		return fmt.Errorf("missing %s", field)
	}
	return nil
}
