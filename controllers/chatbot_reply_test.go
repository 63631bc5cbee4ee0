package controllers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"hermes-backend/models"
	"hermes-backend/services"
)

func TestReplyForUpdate(t *testing.T) {
	cmd := services.UpdateCommands[4]
	got := ReplyFor(models.Users, "", &services.CommandResult{Command: cmd.Name, Update: &cmd, Value: "budi.fb"})
	assert.Equal(t, "✅ Facebook username berhasil diupdate!\n\nFacebook username: budi.fb\n\nGunakan /mydata untuk melihat semua data Anda.", got)
}

func TestReplyForUpdateEchoesStoredValue(t *testing.T) {
	cmd := services.UpdateCommands[0]
	rec := &models.Record{NaturalKey: "1", Name: "Budi  Santoso"}
	got := ReplyFor(models.Personnel, "", &services.CommandResult{Command: cmd.Name, Update: &cmd, Value: "ignored", Record: rec})
	assert.Contains(t, got, cmd.Label+": Budi  Santoso\n")
	assert.NotContains(t, got, "ignored")
}

func TestReplyForMyDataUsesDashes(t *testing.T) {
	phone := "0811"
	rec := &models.Record{NaturalKey: "550e", Name: "Andi", Phone: &phone}
	got := ReplyFor(models.Users, "", &services.CommandResult{Command: services.CommandMyData, Record: rec})

	assert.Contains(t, got, "🆔 UUID: 550e")
	assert.Contains(t, got, "📱 Telepon: 0811")
	assert.Contains(t, got, "🎖️ Pangkat: -")
	assert.Contains(t, got, "📺 YouTube: -")
}

func TestStartAndHelpNameTheKey(t *testing.T) {
	start := ReplyFor(models.Personnel, "@budi", &services.CommandResult{Command: services.CommandStart})
	assert.Contains(t, start, "Selamat datang, @budi!")
	assert.Contains(t, start, "/link <NIP>")
	assert.Contains(t, start, "/update_yt")

	help := ReplyFor(models.Users, "", &services.CommandResult{Command: services.CommandHelp})
	assert.Contains(t, help, "/link <UUID>")
	assert.Contains(t, help, "/update_tt")
}

func TestErrorReply(t *testing.T) {
	cmd := services.UpdateCommands[2]
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unlinked update",
			err:  &services.CommandError{Command: cmd.Name, Update: &cmd, Err: models.ErrUnlinked},
			want: "❌ Akun Telegram Anda belum tertaut.\n\nGunakan /link <UUID> untuk menautkan akun Anda terlebih dahulu.",
		},
		{
			name: "identity taken",
			err:  &services.CommandError{Command: services.CommandLink, Err: models.ErrIdentityTaken},
			want: "❌ Akun Telegram Anda sudah tertaut dengan user lain.\n\nJika ini adalah kesalahan, hubungi administrator.",
		},
		{
			name: "unknown key",
			err:  &services.CommandError{Command: services.CommandLink, Err: fmt.Errorf("%w: uuid x unknown", models.ErrNotFound)},
			want: "❌ UUID tidak ditemukan. Pastikan UUID Anda benar.",
		},
		{
			name: "backend failure during update",
			err:  &services.CommandError{Command: cmd.Name, Update: &cmd, Err: models.ErrTransient},
			want: "❌ Terjadi kesalahan saat mengupdate Telepon. Silakan coba lagi.",
		},
		{
			name: "value too long",
			err:  &services.CommandError{Command: cmd.Name, Update: &cmd, Err: models.Invalid("telepon must be at most 50 characters")},
			want: "❌ telepon must be at most 50 characters",
		},
		{
			name: "usage",
			err:  &services.CommandError{Command: services.CommandLink, Err: models.Invalid("usage: /link <uuid>")},
			want: "❌ usage: /link <uuid>",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorReply(models.Users, tc.err))
		})
	}
}
