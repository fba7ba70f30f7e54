package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ResolveRoleMembers expands a role to its current member ids, bots
// excluded. Membership is read live, never cached or snapshotted.
func (g *Gateway) ResolveRoleMembers(ctx context.Context, serverID, roleID string) ([]string, error) {
	members, err := g.guildMembers(serverID)
	if err != nil {
		return nil, err
	}
	var userIDs []string
	for _, member := range members {
		if member.User == nil || member.User.Bot {
			continue
		}
		for _, id := range member.Roles {
			if id == roleID {
				userIDs = append(userIDs, member.User.ID)
				break
			}
		}
	}
	return userIDs, nil
}

func (g *Gateway) guildMembers(serverID string) ([]*discordgo.Member, error) {
	if guild, err := g.session.State.Guild(serverID); err == nil && len(guild.Members) > 0 {
		return guild.Members, nil
	}
	members, err := g.session.GuildMembers(serverID, "", 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of guild %s: %w", serverID, err)
	}
	return members, nil
}
