package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/osa030/beatbox/internal/app/playback"
)

// formatDuration renders a track duration as MM:SS, or H:MM:SS past an
// hour. Zero means the extractor reported none.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatTotalDuration renders a queue total as HH:MM:SS.
func formatTotalDuration(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// queueEmbed renders the queue listing: the playing head marked with ▷,
// the waiting tracks numbered from 1.
func queueEmbed(st playback.Status, color int) *discordgo.MessageEmbed {
	var sb strings.Builder
	var total time.Duration
	for i, t := range st.Queue {
		total += t.Duration
		if i == 0 {
			sb.WriteString(fmt.Sprintf("▷ %s [%s]\n\n", t.DisplayTitle(), formatDuration(t.Duration)))
			continue
		}
		sb.WriteString(fmt.Sprintf("**%d:** %s [%s]\n", i, t.DisplayTitle(), formatDuration(t.Duration)))
	}

	loopValue := "Disabled"
	if st.Loop {
		loopValue = "Enabled"
	}

	return &discordgo.MessageEmbed{
		Title: "Music Queue",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Now playing:", Value: sb.String(), Inline: false},
			{Name: "Total duration:", Value: formatTotalDuration(total), Inline: true},
			{Name: "Tracks in queue:", Value: strconv.Itoa(len(st.Queue)), Inline: true},
			{Name: "Loop:", Value: loopValue, Inline: true},
		},
	}
}

func nowPlayingEmbed(st playback.Status, color int) *discordgo.MessageEmbed {
	uploader := st.Current.Uploader
	if uploader == "" {
		uploader = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Now Playing",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Title", Value: st.Current.DisplayTitle(), Inline: false},
			{Name: "Uploader", Value: uploader, Inline: true},
			{Name: "Duration", Value: formatDuration(st.Current.Duration), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", int(st.Volume*100)), Inline: true},
		},
	}
	if st.Current.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: st.Current.ThumbnailURL}
	}
	return embed
}

func loopEmbed(enabled bool, color int) *discordgo.MessageEmbed {
	state := "**OFF**"
	if enabled {
		state = "**ON**"
	}
	return &discordgo.MessageEmbed{
		Title:       "Loop Mode",
		Description: fmt.Sprintf("Looping is now %s", state),
		Color:       color,
	}
}

func helpEmbed(prefix string, color int) *discordgo.MessageEmbed {
	entries := []struct {
		command     string
		description string
	}{
		{prefix + "play [query]", "Play a song from YouTube"},
		{prefix + "queue", "Show the current music queue"},
		{prefix + "skip [n]", "Skip a number of tracks"},
		{prefix + "nowplaying", "Show information about the current track"},
		{prefix + "pause", "Pause the current track"},
		{prefix + "resume", "Resume playback"},
		{prefix + "volume [0-100]", "Set the playback volume"},
		{prefix + "loop", "Toggle queue looping"},
		{prefix + "cleanup", "Clean up downloaded files (admin only)"},
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Music Bot Help",
		Description: "Here are the available commands:",
		Color:       color,
	}
	for _, e := range entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: e.command, Value: e.description,
		})
	}
	return embed
}

func ayudaEmbed(prefix string, color int) *discordgo.MessageEmbed {
	entries := []struct {
		command     string
		description string
	}{
		{fmt.Sprintf("%splay, %sp", prefix, prefix),
			"Reproduce una canción de YouTube. Puedes agregar una busqueda o una URL, ambas combinaciones funcionan"},
		{fmt.Sprintf("%squeue, %slista, %sq", prefix, prefix, prefix),
			"Muestra la cola de reproducción actual"},
		{fmt.Sprintf("%sskip, %ss, %ssiguiente, %spasar, %snext [n]", prefix, prefix, prefix, prefix, prefix),
			"Salta una o más canciones"},
		{fmt.Sprintf("%snowplaying, %snp, %ssonando", prefix, prefix, prefix),
			"Muestra información sobre la canción actual"},
		{fmt.Sprintf("%spause, %spa, %sparar, %spausa", prefix, prefix, prefix, prefix),
			"Pausa la canción actual"},
		{fmt.Sprintf("%sresume, %sr, %scontinuar, %sunpausar", prefix, prefix, prefix, prefix),
			"Reanuda la reproducción"},
		{fmt.Sprintf("%svolume, %sv [0-100]", prefix, prefix),
			"Ajusta el volumen de reproducción"},
		{fmt.Sprintf("%sloop, %sl", prefix, prefix),
			"Activa/desactiva la reproducción en bucle"},
		{fmt.Sprintf("%scleanup, %sclean", prefix, prefix),
			"Limpia los archivos descargados (solo administradores)"},
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Ayuda del Bot de Música",
		Description: "Aquí están los comandos disponibles:",
		Color:       color,
	}
	for _, e := range entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: e.command, Value: e.description,
		})
	}
	return embed
}
