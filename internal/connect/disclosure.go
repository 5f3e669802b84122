package connect

import (
	"sort"
	"strings"

	"github.com/dislink/connect-api/internal/models"
)

// Disclose projects a snapshot onto the fields its owner opted to share.
// Anything not explicitly allowed is left out, including everything beyond
// name and image when preferences are missing.
func Disclose(snapshot models.ProfileSnapshot) models.PublicProfile {
	out := models.PublicProfile{
		Name:     snapshot.Name,
		ImageURL: strings.TrimSpace(snapshot.ImageURL.OrElse("")),
	}

	prefs, ok := snapshot.Sharing.Get()
	if !ok {
		return out
	}

	pick := func(field string, value models.Optional[string]) string {
		if !prefs.AllowsField(field) {
			return ""
		}
		return strings.TrimSpace(value.OrElse(""))
	}

	out.Bio = pick(models.FieldBio, snapshot.Bio)
	out.Location = pick(models.FieldLocation, snapshot.Location)
	out.Company = pick(models.FieldCompany, snapshot.Company)
	out.JobTitle = pick(models.FieldJobTitle, snapshot.JobTitle)
	out.Email = pick(models.FieldEmail, snapshot.Email)
	out.Phone = pick(models.FieldPhone, snapshot.Phone)

	if interests, ok := snapshot.Interests.Get(); ok && prefs.AllowsField(models.FieldInterests) {
		for _, interest := range interests {
			if v := strings.TrimSpace(interest); v != "" {
				out.Interests = append(out.Interests, v)
			}
		}
	}

	if links, ok := snapshot.SocialLinks.Get(); ok {
		for platform, url := range links {
			url = strings.TrimSpace(url)
			if url == "" || !prefs.AllowsLink(platform) {
				continue
			}
			out.SocialLinks = append(out.SocialLinks, models.SocialLink{Platform: platform, URL: url})
		}
		sort.Slice(out.SocialLinks, func(a, b int) bool {
			return out.SocialLinks[a].Platform < out.SocialLinks[b].Platform
		})
	}

	return out
}
