package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// repositoryRegex matches GitHub "owner/name" slugs.
	repositoryRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,38}/[A-Za-z0-9._-]{1,100}$`)
	// branchRegex rejects the characters git refuses in ref names.
	branchRegex = regexp.MustCompile(`^[^\s~^:?*\[\\]+$`)
)

func stringField(fl validator.FieldLevel) string {
	field := fl.Field()
	if field.Kind() != reflect.String {
		panic(fmt.Sprintf("input field name is not a string: %s", fl.FieldName()))
	}
	return field.String()
}

func isRepository(fl validator.FieldLevel) bool {
	return IsValidRepository(stringField(fl)) == nil
}

func isBranch(fl validator.FieldLevel) bool {
	return IsValidBranch(stringField(fl)) == nil
}

func IsValidRepository(repo string) error {
	if !repositoryRegex.MatchString(repo) {
		return fmt.Errorf("repository must look like owner/name, got %q", repo)
	}
	return nil
}

func IsValidBranch(branch string) error {
	switch {
	case branch == "":
		return fmt.Errorf("branch name can't be an empty string")
	case !branchRegex.MatchString(branch),
		strings.Contains(branch, ".."),
		strings.HasPrefix(branch, "/"),
		strings.HasSuffix(branch, "/"),
		strings.HasSuffix(branch, ".lock"):
		return fmt.Errorf("%q is not a valid branch name", branch)
	}
	return nil
}
