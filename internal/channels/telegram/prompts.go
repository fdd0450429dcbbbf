package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/quantumpanel/keybot/internal/bus"
	"github.com/quantumpanel/keybot/internal/registry"
)

// promptKind identifies which multi-step admin operation is awaiting input.
type promptKind int

const (
	promptAddSellerID promptKind = iota
	promptRemoveSellerID
	promptAssignSellers
	promptProductName
	promptProductDescription
	promptProductImage
	promptProductSellers
	promptBroadcast
	promptBlockID
	promptUnblockID
)

// prompt is the per-admin state of an in-flight operation. Stored in
// Channel.prompts keyed by admin ID; /cancel discards it.
type prompt struct {
	kind     promptKind
	product  string
	audience string
	draft    registry.Product
}

func (c *Channel) beginPrompt(ctx context.Context, adminID int64, p prompt, instructions string) {
	c.prompts.Store(adminID, p)
	c.send(ctx, adminID, instructions, nil)
}

// consumePrompt feeds a message into the sender's pending prompt, if any.
// Returns true when the message was consumed.
func (c *Channel) consumePrompt(ctx context.Context, message *telego.Message) bool {
	userID := message.From.ID
	v, ok := c.prompts.Load(userID)
	if !ok {
		return false
	}
	p := v.(prompt)

	// Role may have been revoked mid-operation.
	if !c.registry.IsAdmin(userID) {
		c.prompts.Delete(userID)
		return false
	}

	switch p.kind {
	case promptAddSellerID:
		c.finishAddSeller(ctx, userID, p.product, message.Text)
	case promptRemoveSellerID:
		c.finishRemoveSeller(ctx, userID, p.product, message.Text)
	case promptAssignSellers:
		c.finishAssignSellers(ctx, userID, p.product, message.Text)
	case promptProductName:
		c.stepProductName(ctx, userID, p, message.Text)
		return true
	case promptProductDescription:
		c.stepProductDescription(ctx, userID, p, message.Text)
		return true
	case promptProductImage:
		c.stepProductImage(ctx, userID, p, message)
		return true
	case promptProductSellers:
		c.finishProductCreation(ctx, userID, p, message.Text)
	case promptBroadcast:
		c.finishBroadcast(ctx, userID, p.audience, message)
	case promptBlockID:
		c.finishBlock(ctx, userID, message.Text)
	case promptUnblockID:
		c.finishUnblock(ctx, userID, message.Text)
	}

	c.prompts.Delete(userID)
	return true
}

func (c *Channel) finishAddSeller(ctx context.Context, adminID int64, product, input string) {
	sellerID, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		c.send(ctx, adminID, "❌ That's not a valid user ID. Operation cancelled.", nil)
		return
	}
	if !c.registry.AssignSeller(product, sellerID) {
		c.send(ctx, adminID, fmt.Sprintf("❌ Product *%s* no longer exists.", product), nil)
		return
	}
	slog.Info("seller assigned", "admin_id", adminID, "seller_id", sellerID, "product", product)
	c.send(ctx, adminID, fmt.Sprintf("✅ Seller `%d` added to *%s*.", sellerID, product), nil)
}

func (c *Channel) finishRemoveSeller(ctx context.Context, adminID int64, product, input string) {
	sellerID, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		c.send(ctx, adminID, "❌ That's not a valid user ID. Operation cancelled.", nil)
		return
	}
	if !c.registry.UnassignSeller(product, sellerID) {
		c.send(ctx, adminID, fmt.Sprintf("❌ Seller `%d` is not assigned to *%s*.", sellerID, product), nil)
		return
	}
	slog.Info("seller unassigned", "admin_id", adminID, "seller_id", sellerID, "product", product)
	c.send(ctx, adminID, fmt.Sprintf("✅ Seller `%d` removed from *%s*.", sellerID, product), nil)
}

func (c *Channel) finishAssignSellers(ctx context.Context, adminID int64, product, input string) {
	ids := parseIDList(input)
	if len(ids) == 0 {
		c.send(ctx, adminID, "❌ No valid user IDs found. Operation cancelled.", nil)
		return
	}
	assigned := 0
	for _, id := range ids {
		if c.registry.AssignSeller(product, id) {
			assigned++
		}
	}
	if assigned == 0 {
		c.send(ctx, adminID, fmt.Sprintf("❌ Product *%s* no longer exists.", product), nil)
		return
	}
	slog.Info("sellers assigned", "admin_id", adminID, "product", product, "count", assigned)
	c.send(ctx, adminID, fmt.Sprintf("✅ Assigned %d seller(s) to *%s*.", assigned, product), nil)
}

func (c *Channel) stepProductName(ctx context.Context, adminID int64, p prompt, input string) {
	name := strings.TrimSpace(input)
	if name == "" {
		c.send(ctx, adminID, "❌ Product name can't be empty. Send a name, or /cancel.", nil)
		return
	}
	p.draft.Name = name
	p.kind = promptProductDescription
	c.prompts.Store(adminID, p)
	c.send(ctx, adminID, "➕ *Add Product — Step 2 of 4*\n\nSend the product description.", nil)
}

func (c *Channel) stepProductDescription(ctx context.Context, adminID int64, p prompt, input string) {
	p.draft.Description = strings.TrimSpace(input)
	p.kind = promptProductImage
	c.prompts.Store(adminID, p)
	c.send(ctx, adminID, "➕ *Add Product — Step 3 of 4*\n\nSend a product photo, or `skip` for none.", nil)
}

func (c *Channel) stepProductImage(ctx context.Context, adminID int64, p prompt, message *telego.Message) {
	switch {
	case len(message.Photo) > 0:
		// Largest size last; its file ID is reusable for future sends.
		p.draft.Image = message.Photo[len(message.Photo)-1].FileID
	case strings.EqualFold(strings.TrimSpace(message.Text), "skip"):
		// no image
	default:
		c.send(ctx, adminID, "❌ Send a photo, `skip`, or /cancel.", nil)
		return
	}
	p.kind = promptProductSellers
	c.prompts.Store(adminID, p)
	c.send(ctx, adminID, "➕ *Add Product — Step 4 of 4*\n\nSend the seller IDs, comma-separated, or `skip`.", nil)
}

func (c *Channel) finishProductCreation(ctx context.Context, adminID int64, p prompt, input string) {
	if !strings.EqualFold(strings.TrimSpace(input), "skip") {
		p.draft.Sellers = parseIDList(input)
	}
	c.registry.AddProduct(p.draft)
	slog.Info("product added",
		"admin_id", adminID, "product", p.draft.Name, "sellers", len(p.draft.Sellers))
	c.send(ctx, adminID, fmt.Sprintf(
		"✅ *Product Created!*\n\n%s\n📦 *Name:* %s\n📝 *Description:* %s\n👥 *Sellers:* %d",
		panelDivider, p.draft.Name, p.draft.Description, len(p.draft.Sellers)), nil)
}

func (c *Channel) finishBroadcast(ctx context.Context, adminID int64, audience string, message *telego.Message) {
	msg := bus.Outbound{Text: message.Text, Markdown: true}
	if len(message.Photo) > 0 {
		msg.ImagePath = message.Photo[len(message.Photo)-1].FileID
		msg.Text = message.Caption
	}
	if msg.Text == "" && msg.ImagePath == "" {
		c.send(ctx, adminID, "❌ Nothing to broadcast. Operation cancelled.", nil)
		return
	}

	recipients := c.broadcastRecipients(audience)
	c.send(ctx, adminID, fmt.Sprintf("📢 Broadcasting to %d recipient(s)...", len(recipients)), nil)

	report := c.broker.Broadcast(ctx, recipients, msg)
	c.send(ctx, adminID, fmt.Sprintf(
		"✅ *Broadcast completed!*\n\nSent: %d\nFailed: %d", report.Sent, report.Failed), nil)
}

// broadcastRecipients resolves an audience name to user IDs. "users" means
// everyone who ever ran /start minus staff; "sellers" includes admins.
func (c *Channel) broadcastRecipients(audience string) []int64 {
	staff := map[int64]struct{}{}
	for _, id := range c.registry.Sellers() {
		staff[id] = struct{}{}
	}
	for _, id := range c.registry.Admins() {
		staff[id] = struct{}{}
	}

	seen := map[int64]struct{}{}
	var out []int64
	add := func(id int64) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	switch audience {
	case "users":
		for _, id := range c.broker.Store().Users() {
			if _, isStaff := staff[id]; !isStaff {
				add(id)
			}
		}
	case "sellers":
		for id := range staff {
			add(id)
		}
	case "everyone":
		for _, id := range c.broker.Store().Users() {
			add(id)
		}
		for id := range staff {
			add(id)
		}
	}
	return out
}

func (c *Channel) finishBlock(ctx context.Context, adminID int64, input string) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		c.send(ctx, adminID, "❌ That's not a valid user ID. Operation cancelled.", nil)
		return
	}
	if !c.registry.Block(id) {
		c.send(ctx, adminID, fmt.Sprintf("❌ User `%d` cannot be blocked.", id), nil)
		return
	}
	slog.Warn("user blocked", "admin_id", adminID, "user_id", id)
	c.send(ctx, adminID, fmt.Sprintf("⛔ User `%d` has been blocked.", id), nil)
}

func (c *Channel) finishUnblock(ctx context.Context, adminID int64, input string) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		c.send(ctx, adminID, "❌ That's not a valid user ID. Operation cancelled.", nil)
		return
	}
	if !c.registry.Unblock(id) {
		c.send(ctx, adminID, fmt.Sprintf("❌ User `%d` is not blocked.", id), nil)
		return
	}
	slog.Info("user unblocked", "admin_id", adminID, "user_id", id)
	c.send(ctx, adminID, fmt.Sprintf("✅ User `%d` has been unblocked.", id), nil)
}

// parseIDList extracts user IDs from a comma-separated string, dropping
// entries that do not parse.
func parseIDList(input string) []int64 {
	var ids []int64
	for _, part := range strings.Split(input, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
