package controllers

import (
	"errors"
	"fmt"
	"strings"

	"hermes-backend/models"
	"hermes-backend/services"
)

func orDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func startReply(v models.Variant, from string) string {
	key := strings.ToUpper(v.KeyField)
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "Selamat datang, %s! 👋\n\n", from)
	} else {
		b.WriteString("Selamat datang! 👋\n\n")
	}
	fmt.Fprintf(&b, "Bot ini digunakan untuk menautkan akun Telegram Anda dengan data %s Hermes.\n\n", strings.ToLower(v.Noun))
	b.WriteString("Cara Penggunaan:\n")
	fmt.Fprintf(&b, "1️⃣ Gunakan command /link <%s> untuk menautkan akun\n\n", key)
	b.WriteString("2️⃣ Setelah tertaut, gunakan command berikut:\n")
	for _, cmd := range services.UpdateCommands {
		fmt.Fprintf(&b, "   • /%s <%s>\n", cmd.Name, strings.ToLower(cmd.Label))
	}
	b.WriteString("\n3️⃣ /mydata - Lihat data Anda\n")
	b.WriteString("4️⃣ /help - Bantuan")
	return b.String()
}

func helpReply(v models.Variant) string {
	key := strings.ToUpper(v.KeyField)
	var b strings.Builder
	b.WriteString("Daftar Command:\n\n")
	b.WriteString("📌 /start - Memulai bot\n")
	fmt.Fprintf(&b, "🔗 /link <%s> - Menautkan akun Telegram dengan %s Anda\n", key, key)
	b.WriteString("📊 /mydata - Melihat data Anda\n")
	for _, cmd := range services.UpdateCommands {
		fmt.Fprintf(&b, "✏️ /%s <%s> - Update %s\n", cmd.Name, strings.ToLower(cmd.Label), cmd.Label)
	}
	b.WriteString("❓ /help - Menampilkan bantuan")
	return b.String()
}

func myDataReply(v models.Variant, rec *models.Record) string {
	var b strings.Builder
	b.WriteString("Data Anda:\n\n")
	fmt.Fprintf(&b, "👤 Nama: %s\n", rec.Name)
	fmt.Fprintf(&b, "🆔 %s: %s\n", strings.ToUpper(v.KeyField), rec.NaturalKey)
	fmt.Fprintf(&b, "🎖️ Pangkat: %s\n", orDash(rec.Rank))
	fmt.Fprintf(&b, "📱 Telepon: %s\n", orDash(rec.Phone))
	fmt.Fprintf(&b, "📧 Email: %s\n", orDash(rec.Email))
	fmt.Fprintf(&b, "🏢 Unit Kerja: %s\n", orDash(rec.Unit))
	fmt.Fprintf(&b, "📊 Status: %s\n\n", orDash(rec.Status))
	b.WriteString("Social Media:\n")
	fmt.Fprintf(&b, "📸 Instagram: %s\n", orDash(rec.Instagram))
	fmt.Fprintf(&b, "👥 Facebook: %s\n", orDash(rec.Facebook))
	fmt.Fprintf(&b, "🎵 TikTok: %s\n", orDash(rec.TikTok))
	fmt.Fprintf(&b, "🐦 X/Twitter: %s\n", orDash(rec.X))
	fmt.Fprintf(&b, "📺 YouTube: %s", orDash(rec.YouTube))
	return b.String()
}

func linkReply(v models.Variant, rec *models.Record) string {
	return fmt.Sprintf("✅ Berhasil menautkan akun!\n\n"+
		"Data Anda:\n"+
		"Nama: %s\n"+
		"%s: %s\n"+
		"Pangkat: %s\n"+
		"Telepon: %s\n\n"+
		"Sekarang Anda dapat mengupdate data menggunakan command /update_*\n"+
		"Gunakan /help untuk melihat daftar command.",
		rec.Name, strings.ToUpper(v.KeyField), rec.NaturalKey, orDash(rec.Rank), orDash(rec.Phone))
}

// ReplyFor renders the chat reply for a handled command. from is the
// sender's display name, used by /start only.
func ReplyFor(v models.Variant, from string, res *services.CommandResult) string {
	switch res.Command {
	case services.CommandStart:
		return startReply(v, from)
	case services.CommandHelp:
		return helpReply(v)
	case services.CommandLink:
		return linkReply(v, res.Record)
	case services.CommandMyData:
		return myDataReply(v, res.Record)
	}
	if res.Update != nil {
		value := res.Value
		if res.Record != nil {
			value = orDash(res.Record.Value(res.Update.Field))
		}
		return fmt.Sprintf("✅ %s berhasil diupdate!\n\n%s: %s\n\nGunakan /mydata untuk melihat semua data Anda.",
			res.Update.Label, res.Update.Label, value)
	}
	return ""
}

// ErrorReply renders the chat reply for a failed command.
func ErrorReply(v models.Variant, err error) string {
	key := strings.ToUpper(v.KeyField)

	var cmdErr *services.CommandError
	command, label := "", ""
	if errors.As(err, &cmdErr) {
		command = cmdErr.Command
		if cmdErr.Update != nil {
			label = cmdErr.Update.Label
		}
	}

	switch {
	case errors.Is(err, models.ErrUnlinked):
		if command == services.CommandMyData {
			return fmt.Sprintf("❌ Akun Telegram Anda belum tertaut.\n\nGunakan /link <%s> untuk menautkan akun Anda.", key)
		}
		return fmt.Sprintf("❌ Akun Telegram Anda belum tertaut.\n\nGunakan /link <%s> untuk menautkan akun Anda terlebih dahulu.", key)
	case errors.Is(err, models.ErrIdentityTaken):
		return "❌ Akun Telegram Anda sudah tertaut dengan user lain.\n\nJika ini adalah kesalahan, hubungi administrator."
	case command == services.CommandLink && errors.Is(err, models.ErrNotFound):
		return fmt.Sprintf("❌ %s tidak ditemukan. Pastikan %s Anda benar.", key, key)
	case errors.Is(err, models.ErrValidation):
		return "❌ " + validationMessage(err)
	}

	switch {
	case label != "":
		return fmt.Sprintf("❌ Terjadi kesalahan saat mengupdate %s. Silakan coba lagi.", label)
	case command == services.CommandLink:
		return "❌ Terjadi kesalahan saat menautkan akun. Silakan coba lagi."
	case command == services.CommandMyData:
		return "❌ Terjadi kesalahan saat mengambil data. Silakan coba lagi."
	}
	return "❌ Terjadi kesalahan. Silakan coba lagi."
}
