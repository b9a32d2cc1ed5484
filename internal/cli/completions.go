package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/pkg/models"
)

// completeContacts lists contact IDs with the name and department as the
// description. Names are matched as well as IDs.
func completeContacts(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Service == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	contacts, err := Service.Contacts()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var out []string
	for _, c := range contacts {
		if toComplete == "" || strings.HasPrefix(c.ID, toComplete) || strings.HasPrefix(c.Name, toComplete) {
			out = append(out, c.ID+"\t"+strings.TrimSpace(c.Name+" "+c.Dept))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeMeetingIDs lists meeting IDs with the time and subject as the
// description.
func completeMeetingIDs(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Service == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	tasks, err := Service.Tasks()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, t := range tasks {
		if toComplete == "" || strings.HasPrefix(t.ID, toComplete) {
			ids = append(ids, t.ID+"\t"+t.Time+" "+t.Subject)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeMeetingThenContact completes a meeting ID first and then the
// contacts taking part in that meeting.
func completeMeetingThenContact(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return completeMeetingIDs(cmd, args, toComplete)
	case 1:
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if Service == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	tasks, err := Service.Tasks()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	contacts, err := Service.Contacts()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	task, ok := findTask(tasks, args[0])
	if !ok {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	idx := models.ContactIndex(contacts)

	var out []string
	for _, p := range task.Participants {
		c, ok := idx[p.ContactID]
		if !ok {
			continue
		}
		if toComplete == "" || strings.HasPrefix(c.ID, toComplete) || strings.HasPrefix(c.Name, toComplete) {
			out = append(out, c.ID+"\t"+c.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeTemplateIDs lists configured template IDs.
func completeTemplateIDs(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Service == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	settings, err := Service.Settings()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, t := range settings.Templates {
		if toComplete == "" || strings.HasPrefix(t.ID, toComplete) {
			ids = append(ids, t.ID+"\t"+string(t.Type)+": "+t.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func completeChannels(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"wechat\tWeChat message by remark name",
		"sms\tSMS to the contact's phone",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeMeetingModes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.MeetingOffline) + "\tEveryone attends in person",
		string(models.MeetingOnline) + "\tEveryone joins remotely",
		string(models.MeetingMixed) + "\tEach participant is marked online or offline",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeVocabularies(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"departments", "positions"}, cobra.ShellCompDirectiveNoFileComp
}

// firstArgOnly limits fn to the first positional argument.
func firstArgOnly(fn cobra.CompletionFunc) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return fn(cmd, args, toComplete)
	}
}

// registerCompletions attaches completion functions once every command file
// has defined its flags.
func registerCompletions() {
	for _, cmd := range []*cobra.Command{previewCmd, sendCmd, skipCmd, contactRemoveCmd} {
		cmd.ValidArgsFunction = firstArgOnly(completeContacts)
	}
	for _, cmd := range []*cobra.Command{previewCmd, sendCmd, skipCmd, consoleCmd} {
		_ = cmd.RegisterFlagCompletionFunc("channel", completeChannels)
	}

	meetingStatusCmd.ValidArgsFunction = firstArgOnly(completeMeetingIDs)
	meetingRemoveCmd.ValidArgsFunction = firstArgOnly(completeMeetingIDs)
	meetingReplyCmd.ValidArgsFunction = completeMeetingThenContact
	meetingProcurementCmd.ValidArgsFunction = completeMeetingThenContact
	_ = meetingAddCmd.RegisterFlagCompletionFunc("mode", completeMeetingModes)
	_ = meetingAddCmd.RegisterFlagCompletionFunc("template", completeTemplateIDs)

	templateShowCmd.ValidArgsFunction = firstArgOnly(completeTemplateIDs)
	templateValidateCmd.ValidArgsFunction = firstArgOnly(completeTemplateIDs)

	vocabularyAddCmd.ValidArgsFunction = completeVocabularies
	vocabularyRemoveCmd.ValidArgsFunction = completeVocabularies
}
