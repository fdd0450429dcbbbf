package broker

import (
	"fmt"

	"github.com/quantumpanel/keybot/internal/bus"
)

// Core notification texts. These mirror the bot's user-facing voice; panel
// and menu rendering lives in the transport layer.

const divider = "━━━━━━━━━━━━━━━━━"

// AcceptCallback builds the callback payload an alert button carries; the
// transport echoes it back into AcceptConnection.
func AcceptCallback(buyerID int64, product string) string {
	return fmt.Sprintf("accept_%d_%s", buyerID, product)
}

func sellerAlert(buyerID int64, product string) bus.Outbound {
	return bus.Outbound{
		Text: fmt.Sprintf(
			"🆕 *NEW CONNECTION REQUEST*\n\n%s\n📦 *Product:* %s\n🔑 *Customer ID:* `%d`\n\n%s\n✨ Click *\"Accept\"* to take this customer!",
			divider, product, buyerID, divider),
		Buttons: [][]bus.Button{{
			{Label: "✅ Accept Request", Data: AcceptCallback(buyerID, product)},
		}},
		Markdown: true,
	}
}

func sellerConnected(sess Session) bus.Outbound {
	return bus.Outbound{
		RecipientID: sess.SellerID,
		Text: fmt.Sprintf(
			"📞 *CONNECTION STARTED*\n\n%s\n📦 *Product:* %s\n👤 *Customer ID:* `%d`\n\n%s\n💬 You are now connected!\n📝 Send messages normally.\n🛑 Use /stop to end the conversation.",
			divider, sess.Product, sess.BuyerID, divider),
		Markdown: true,
	}
}

func buyerConnected(sess Session) bus.Outbound {
	return bus.Outbound{
		RecipientID: sess.BuyerID,
		Text: fmt.Sprintf(
			"✅ *CONNECTION SUCCESSFUL!*\n\n%s\n💼 *Seller ID:* `%d`\n📦 *Product:* %s\n\n%s\n💬 Start your conversation below...",
			divider, sess.SellerID, sess.Product, divider),
		Markdown: true,
	}
}

func buyerForward(sess Session, senderLabel, text string) bus.Outbound {
	label := senderLabel
	if label == "" {
		label = fmt.Sprintf("`%d`", sess.BuyerID)
	}
	return bus.Outbound{
		RecipientID: sess.SellerID,
		Text: fmt.Sprintf(
			"💬 *Message from Customer*\n\n👤 %s\n🔑 ID: `%d`\n📦 Product: %s\n\n%s\n%s",
			label, sess.BuyerID, sess.Product, divider, text),
		Markdown: true,
	}
}

func sellerForward(buyerID, sellerID int64, senderLabel, text string) bus.Outbound {
	label := senderLabel
	if label == "" {
		label = fmt.Sprintf("`%d`", sellerID)
	}
	return bus.Outbound{
		RecipientID: buyerID,
		Text: fmt.Sprintf(
			"💼 *Message from Seller*\n\n👤 %s\n\n%s\n%s",
			label, divider, text),
		Markdown: true,
	}
}

func deliveryFailure(senderID int64, counterpart string) bus.Outbound {
	return bus.Outbound{
		RecipientID: senderID,
		Text: fmt.Sprintf(
			"❌ *Failed to Send Message*\n\nThe %s may have blocked the bot.",
			counterpart),
		Markdown: true,
	}
}

func buyerSessionEnded(ended EndedSession) bus.Outbound {
	return bus.Outbound{
		RecipientID: ended.BuyerID,
		Text: fmt.Sprintf(
			"⚠️ *CONVERSATION ENDED*\n\n%s\nThe seller has ended the conversation.\n\n💡 If you still need help, tap *Buy Key(s)* again!",
			divider),
		Markdown: true,
	}
}

func sellerSessionEnded(ended EndedSession) bus.Outbound {
	return bus.Outbound{
		RecipientID: ended.SellerID,
		Text: fmt.Sprintf(
			"⚠️ *CONVERSATION ENDED*\n\n%s\n👤 Customer `%d` has ended the conversation.\n📦 Product: %s",
			divider, ended.BuyerID, ended.Product),
		Markdown: true,
	}
}

func buyerForceStopped(ended EndedSession) bus.Outbound {
	return bus.Outbound{
		RecipientID: ended.BuyerID,
		Text:        "⚠️ Your session was ended by an administrator.",
	}
}

func sellerForceStopped(ended EndedSession) bus.Outbound {
	return bus.Outbound{
		RecipientID: ended.SellerID,
		Text: fmt.Sprintf(
			"⚠️ Your session with user %d was ended by an administrator.",
			ended.BuyerID),
	}
}
