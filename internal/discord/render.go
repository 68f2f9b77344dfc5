package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Billy-Davies-2/xpulse-cards/internal/catalog"
	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
)

// Embed colours
const (
	ColorSuccess = 0x00FF00
	ColorFailure = 0xFF0000
	ColorAscend  = 0xFFD700
	ColorInfo    = 0x0099FF
)

// Renderer turns dispatcher results into Discord embeds
type Renderer struct {
	cards *catalog.CardCatalog
}

// NewRenderer creates a renderer that resolves card names from cards
func NewRenderer(cards *catalog.CardCatalog) *Renderer {
	return &Renderer{cards: cards}
}

func (r *Renderer) cardName(code string) string {
	if def, ok := r.cards.Lookup(code); ok {
		return def.DisplayName
	}
	return code
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func code(v interface{}) string {
	return fmt.Sprintf("`%v`", v)
}

func progressFields(experience, level int, rank models.Rank) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		field("Total Experience", code(experience)),
		field("Level", code(level)),
		field("Rank", code(rank)),
	}
}

// Render builds the embed for a successful command
func (r *Renderer) Render(resp *command.Response) *discordgo.MessageEmbed {
	switch res := resp.Result.(type) {
	case *progression.StarterResult:
		return &discordgo.MessageEmbed{
			Title:       "Card Assigned",
			Description: fmt.Sprintf("Congratulations! You have been assigned the card **%s**.", res.Card.DisplayName),
			Color:       ColorSuccess,
			Image:       image(res.Card),
		}

	case *progression.SelectResult:
		return &discordgo.MessageEmbed{
			Title:       "Selected Card",
			Description: fmt.Sprintf("You have selected the card: **%s**", res.Card.DisplayName),
			Color:       ColorSuccess,
			Fields:      []*discordgo.MessageEmbedField{field("Level", code(res.Level))},
			Image:       image(res.Card),
		}

	case *progression.TrainResult:
		fields := progressFields(res.TotalExperience, res.VisualLevel, res.Rank)
		if res.AssignedWorkName != "" {
			fields = append(fields, field("Assigned Work", res.AssignedWorkName))
		}
		return &discordgo.MessageEmbed{
			Title:       "Training Complete",
			Description: fmt.Sprintf("**%s** has gained **%d** experience points.", r.cardName(res.CardCode), res.ExperienceGained),
			Color:       ColorSuccess,
			Fields:      fields,
		}

	case *progression.WorkResult:
		fields := progressFields(res.TotalExperience, res.VisualLevel, res.Rank)
		fields = append(fields, field("Uses Left", code(res.RemainingUses)))
		return &discordgo.MessageEmbed{
			Title: "Work Complete",
			Description: fmt.Sprintf("**%s** has gained **%d** experience points from the work **%s**.",
				r.cardName(res.CardCode), res.ExperienceGained, res.WorkName),
			Color:  ColorSuccess,
			Fields: fields,
		}

	case *progression.AscendResult:
		return r.renderAscend(res)

	case *progression.BuyResult:
		desc := fmt.Sprintf("You have successfully purchased the card: **%s**", res.Card.DisplayName)
		if res.AlreadyOwned {
			desc = fmt.Sprintf("You already own **%s**.", res.Card.DisplayName)
		}
		embed := &discordgo.MessageEmbed{
			Title:       "Card Purchased",
			Description: desc,
			Color:       ColorSuccess,
			Fields:      []*discordgo.MessageEmbedField{field("Cards Owned", code(res.OwnedCount))},
		}
		if res.Selected {
			embed.Fields = append(embed.Fields, field("Selected Card", res.Card.DisplayName))
		}
		return embed

	case []progression.MailboxEntry:
		embed := &discordgo.MessageEmbed{Title: "Mailbox", Color: ColorInfo}
		if len(res) == 0 {
			embed.Description = "The inbox is empty."
			return embed
		}
		var b strings.Builder
		for _, entry := range res {
			fmt.Fprintf(&b, "%d. %s (%s)\n", entry.Position, entry.DisplayName, entry.Item.Type)
		}
		embed.Description = b.String()
		return embed

	case *progression.UseMailResult:
		desc := fmt.Sprintf("Used **%s**.", res.Item.Name)
		if res.WorkName != "" {
			desc = fmt.Sprintf("**%s** has been assigned the work **%s**.", r.cardName(res.CardCode), res.WorkName)
		}
		return &discordgo.MessageEmbed{
			Title:       "Mail Used",
			Description: desc,
			Color:       ColorSuccess,
			Fields:      []*discordgo.MessageEmbedField{field("Uses Left", code(res.RemainingUses))},
		}

	case *progression.ProfileView:
		return r.renderProfile(res)

	case []models.LeaderboardEntry:
		embed := &discordgo.MessageEmbed{Title: "Top Cards", Color: ColorInfo}
		if len(res) == 0 {
			embed.Description = "Nobody has trained a card yet."
			return embed
		}
		var b strings.Builder
		for i, e := range res {
			fmt.Fprintf(&b, "%d. <@%s> **%s** Lv.%d %s (%d XP)\n", i+1, e.UserID, r.cardName(e.CardCode), e.Level, e.Rank, e.Experience)
		}
		embed.Description = b.String()
		return embed

	case *models.MailItem:
		return &discordgo.MessageEmbed{
			Title:       "Mail Sent",
			Description: fmt.Sprintf("Granted **%s**.", res.Name),
			Color:       ColorSuccess,
		}

	case *progression.ResetResult:
		desc := fmt.Sprintf("<@%s> has no profile.", res.UserID)
		if res.Existed {
			desc = fmt.Sprintf("<@%s> has been reset. %d cards removed.", res.UserID, res.CardsRemoved)
		}
		return &discordgo.MessageEmbed{Title: "Profile Reset", Description: desc, Color: ColorSuccess}

	default:
		return &discordgo.MessageEmbed{Title: resp.Command, Color: ColorInfo}
	}
}

func (r *Renderer) renderAscend(res *progression.AscendResult) *discordgo.MessageEmbed {
	name := r.cardName(res.CardCode)
	switch {
	case res.Promoted:
		embed := &discordgo.MessageEmbed{
			Title:       "Ascension",
			Description: fmt.Sprintf("Congratulations! **%s** has ascended to the rank `%s`", name, res.Rank),
			Color:       ColorAscend,
			Fields: []*discordgo.MessageEmbedField{
				field("Level", code(res.VisualLevel)),
				field("Rank", code(res.Rank)),
			},
		}
		if def, ok := r.cards.Lookup(res.CardCode); ok && def.ImageRef != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: def.ImageRef}
		}
		return embed
	case res.Terminal:
		return &discordgo.MessageEmbed{
			Title:       "Maximum Rank",
			Description: fmt.Sprintf("**%s** is already at the highest rank `%s`.", name, res.Rank),
			Color:       ColorFailure,
		}
	default:
		return &discordgo.MessageEmbed{
			Title:       "Not Ready",
			Description: fmt.Sprintf("**%s** needs **%d** more experience to ascend.", name, res.ExperienceNeeded),
			Color:       ColorFailure,
			Fields: []*discordgo.MessageEmbedField{
				field("Level", code(res.VisualLevel)),
				field("Rank", code(res.Rank)),
			},
		}
	}
}

func (r *Renderer) renderProfile(view *progression.ProfileView) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Your Cards", Color: ColorInfo}
	if len(view.Cards) == 0 {
		embed.Description = "You do not own any cards yet. Use `start` to get one."
		return embed
	}
	for _, c := range view.Cards {
		name := c.Card.DisplayName
		if c.Selected {
			name += " (selected)"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  name,
			Value: fmt.Sprintf("%s | %s | Lv.%d | %d XP", c.Card.Code, c.Progress.Rank, c.Level, c.Progress.Experience),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Mailbox: %d", view.MailboxSize)}
	return embed
}

func image(def models.CardDefinition) *discordgo.MessageEmbedImage {
	if def.ImageRef == "" {
		return nil
	}
	return &discordgo.MessageEmbedImage{URL: def.ImageRef}
}

// RenderError builds the red failure embed shown for a rejected command
func RenderError(err error) *discordgo.MessageEmbed {
	title, desc := "Something Went Wrong", "Please try again later."
	switch {
	case errors.Is(err, progression.ErrCardNotFound):
		title, desc = "Card Not Found", "That card does not exist."
	case errors.Is(err, progression.ErrCardNotOwned):
		title, desc = "Card Not Found", "You do not own that card."
	case errors.Is(err, progression.ErrAlreadyHasCard):
		title, desc = "Already Started", "You already have a card."
	case errors.Is(err, progression.ErrNoCardSelected):
		title, desc = "No Card Selected", "You need to select a card first."
	case errors.Is(err, progression.ErrNoWorkAssigned):
		title, desc = "No Work Assigned", "The selected card does not have any work assigned."
	case errors.Is(err, progression.ErrItemNotFound):
		title, desc = "Item Not Found", "There is no mail at that position."
	case errors.Is(err, progression.ErrValidation):
		title, desc = "Invalid Command", err.Error()
	case errors.Is(err, command.ErrUnknownCommand):
		title, desc = "Unknown Command", err.Error()
	case errors.Is(err, command.ErrForbidden):
		title, desc = "Not Allowed", "Only admins can use that command."
	case errors.Is(err, command.ErrLeaderboardUnavailable):
		title, desc = "Leaderboard Offline", "The leaderboard is not available right now."
	}
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: ColorFailure}
}
